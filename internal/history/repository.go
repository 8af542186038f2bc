package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"api_auto_test/internal/model"
)

// ErrNotFound 没有这次执行的记录
var ErrNotFound = errors.New("history: run not found")

// Run 一次上传执行的元信息
type Run struct {
	ID         uuid.UUID  `json:"id"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Total      int        `json:"total"`
}

// Duration 执行耗时，未结束时为 0
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Repository 保存每次执行产生的结果
type Repository interface {
	CreateRun(ctx context.Context, run *Run) error
	AddResult(ctx context.Context, runID uuid.UUID, seq int, result model.TestResult) error
	FinishRun(ctx context.Context, runID uuid.UUID, finishedAt time.Time) error
	ReadRun(ctx context.Context, runID uuid.UUID) (*Run, []model.TestResult, error)
}
