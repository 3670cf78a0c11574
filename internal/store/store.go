// Package store persists run history to PostgreSQL. The store is
// optional; when no database is configured the service keeps no history.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/entityops/einfiler/api/schemas"
)

// DBPool abstracts pgxpool.Pool so tests can substitute a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store provides the PostgreSQL run-history implementation.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    run_id      TEXT PRIMARY KEY,
    record_id   TEXT NOT NULL,
    status      TEXT NOT NULL,
    message     TEXT NOT NULL DEFAULT '',
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_record_id_idx ON runs (record_id);
`

// EnsureSchema creates the runs table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure runs schema: %w", err)
	}
	return nil
}

// SaveRun upserts one run result. Timestamps are normalized to UTC before
// insertion to avoid zone ambiguity.
func (s *Store) SaveRun(ctx context.Context, result schemas.RunResult) error {
	sql := `
        INSERT INTO runs (run_id, record_id, status, message, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (run_id) DO UPDATE SET
            status = EXCLUDED.status,
            message = EXCLUDED.message,
            finished_at = EXCLUDED.finished_at;
    `
	_, err := s.pool.Exec(ctx, sql,
		result.RunID, result.RecordID, string(result.Status), result.Message,
		result.StartedAt.UTC(), result.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", result.RunID, err)
	}

	s.log.Debug("Run persisted.",
		zap.String("run_id", result.RunID), zap.String("status", string(result.Status)))
	return nil
}

// RunsForRecord returns every recorded attempt for a CRM record, oldest
// first.
func (s *Store) RunsForRecord(ctx context.Context, recordID string) ([]schemas.RunResult, error) {
	query := `
        SELECT run_id, record_id, status, message, started_at, finished_at
        FROM runs
        WHERE record_id = $1
        ORDER BY started_at ASC;
    `
	rows, err := s.pool.Query(ctx, query, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var results []schemas.RunResult
	for rows.Next() {
		var r schemas.RunResult
		var statusStr string
		if err := rows.Scan(&r.RunID, &r.RecordID, &statusStr, &r.Message, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		r.Status = schemas.RunStatus(statusStr)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return results, nil
}
