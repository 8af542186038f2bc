package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/sirupsen/logrus"

	"api_auto_test/internal/history"
	"api_auto_test/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS test_runs (
	id          UUID PRIMARY KEY,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	total       INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS test_results (
	run_id           UUID NOT NULL REFERENCES test_runs(id) ON DELETE CASCADE,
	seq              INTEGER NOT NULL,
	api_name         TEXT NOT NULL,
	test_case        TEXT NOT NULL,
	parameters       TEXT NOT NULL,
	response         TEXT NOT NULL,
	http_status      INTEGER NOT NULL,
	response_code    TEXT NOT NULL,
	response_message TEXT NOT NULL,
	curl_command     TEXT NOT NULL,
	errors           TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
)`

var _ history.Repository = (*PostgresRepository)(nil)

type PostgresRepository struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

func NewPostgresRepository(log *logrus.Logger, pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
		log:  log,
	}
}

// Migrate 建表
func (pR *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := pR.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("创建表失败: %w", err)
	}
	return nil
}

func (pR *PostgresRepository) CreateRun(ctx context.Context, run *history.Run) error {
	sqlQuery := `INSERT INTO test_runs (id, started_at, total) VALUES ($1, $2, $3)`
	if _, err := pR.pool.Exec(ctx, sqlQuery, run.ID, run.StartedAt, run.Total); err != nil {
		return err
	}
	return nil
}

func (pR *PostgresRepository) AddResult(ctx context.Context, runID uuid.UUID, seq int, result model.TestResult) error {
	sqlQuery := `INSERT INTO test_results (run_id, seq, api_name, test_case, parameters, response,
		http_status, response_code, response_message, curl_command, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := pR.pool.Exec(ctx, sqlQuery,
		runID,
		seq,
		result.APIName,
		result.TestCase,
		result.Parameters,
		result.Response,
		result.HTTPStatus,
		result.ResponseCode,
		result.ResponseMessage,
		result.CurlCommand,
		result.Errors); err != nil {
		return err
	}
	return nil
}

func (pR *PostgresRepository) FinishRun(ctx context.Context, runID uuid.UUID, finishedAt time.Time) error {
	sqlQuery := `UPDATE test_runs SET finished_at = $2 WHERE id = $1`
	tag, err := pR.pool.Exec(ctx, sqlQuery, runID, finishedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return history.ErrNotFound
	}
	return nil
}

func (pR *PostgresRepository) ReadRun(ctx context.Context, runID uuid.UUID) (*history.Run, []model.TestResult, error) {
	run := &history.Run{}
	sqlQuery := `SELECT id, started_at, finished_at, total FROM test_runs WHERE id = $1`
	if err := pR.pool.QueryRow(ctx, sqlQuery, runID).Scan(
		&run.ID,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, history.ErrNotFound
		}
		return nil, nil, err
	}

	sqlQuery = `SELECT api_name, test_case, parameters, response, http_status,
		response_code, response_message, curl_command, errors
		FROM test_results WHERE run_id = $1 ORDER BY seq`
	rows, err := pR.pool.Query(ctx, sqlQuery, runID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := []model.TestResult{}
	for rows.Next() {
		var result model.TestResult
		if err := rows.Scan(
			&result.APIName,
			&result.TestCase,
			&result.Parameters,
			&result.Response,
			&result.HTTPStatus,
			&result.ResponseCode,
			&result.ResponseMessage,
			&result.CurlCommand,
			&result.Errors); err != nil {
			return nil, nil, err
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return run, results, nil
}
