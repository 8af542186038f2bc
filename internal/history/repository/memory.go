package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"api_auto_test/internal/history"
	"api_auto_test/internal/model"
)

type memoryRun struct {
	run     history.Run
	results map[int]model.TestResult
}

var _ history.Repository = (*MemoryRepository)(nil)

// MemoryRepository 未配置数据库时使用，进程退出后丢失
type MemoryRepository struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]*memoryRun
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{runs: make(map[uuid.UUID]*memoryRun)}
}

func (mR *MemoryRepository) CreateRun(ctx context.Context, run *history.Run) error {
	mR.mu.Lock()
	defer mR.mu.Unlock()
	mR.runs[run.ID] = &memoryRun{run: *run, results: make(map[int]model.TestResult)}
	return nil
}

func (mR *MemoryRepository) AddResult(ctx context.Context, runID uuid.UUID, seq int, result model.TestResult) error {
	mR.mu.Lock()
	defer mR.mu.Unlock()
	r, ok := mR.runs[runID]
	if !ok {
		return history.ErrNotFound
	}
	r.results[seq] = result
	return nil
}

func (mR *MemoryRepository) FinishRun(ctx context.Context, runID uuid.UUID, finishedAt time.Time) error {
	mR.mu.Lock()
	defer mR.mu.Unlock()
	r, ok := mR.runs[runID]
	if !ok {
		return history.ErrNotFound
	}
	r.run.FinishedAt = &finishedAt
	return nil
}

func (mR *MemoryRepository) ReadRun(ctx context.Context, runID uuid.UUID) (*history.Run, []model.TestResult, error) {
	mR.mu.RLock()
	defer mR.mu.RUnlock()
	r, ok := mR.runs[runID]
	if !ok {
		return nil, nil, history.ErrNotFound
	}

	seqs := make([]int, 0, len(r.results))
	for seq := range r.results {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)

	results := make([]model.TestResult, 0, len(seqs))
	for _, seq := range seqs {
		results = append(results, r.results[seq])
	}
	run := r.run
	return &run, results, nil
}
