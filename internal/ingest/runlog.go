package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Run is one recorded ingestion step.
type Run struct {
	ID         string       `db:"id"`
	Source     string       `db:"source"`
	StartedAt  time.Time    `db:"started_at"`
	FinishedAt sql.NullTime `db:"finished_at"`
	Status     string       `db:"status"`
	Rows       int64        `db:"row_count"`
	Error      string       `db:"error"`
}

// Duration returns how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if !r.FinishedAt.Valid {
		return 0
	}
	return r.FinishedAt.Time.Sub(r.StartedAt)
}

// RunLog records ingestion runs in the ingest_runs table. It works on any
// sqlx database whose driver sqlx knows the bind type of (pgx, sqlite).
type RunLog struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewRunLog creates a run log on db.
func NewRunLog(db *sqlx.DB) *RunLog {
	return &RunLog{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const runLogSchema = `
CREATE TABLE IF NOT EXISTS ingest_runs (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NULL,
	status TEXT NOT NULL,
	row_count BIGINT NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT ''
)`

// EnsureSchema creates the ingest_runs table if it does not exist.
func (l *RunLog) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, runLogSchema); err != nil {
		return fmt.Errorf("create ingest_runs: %w", err)
	}
	return nil
}

// Start records a running step and returns its id.
func (l *RunLog) Start(ctx context.Context, source string) (string, error) {
	id := uuid.NewString()
	query := l.db.Rebind(`INSERT INTO ingest_runs (id, source, started_at, status) VALUES (?, ?, ?, ?)`)
	if _, err := l.db.ExecContext(ctx, query, id, source, l.now(), StatusRunning); err != nil {
		return "", fmt.Errorf("record run start: %w", err)
	}
	return id, nil
}

// Finish marks a step as succeeded with rows written, or failed with runErr.
func (l *RunLog) Finish(ctx context.Context, id string, rows int64, runErr error) error {
	status, msg := StatusSuccess, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	query := l.db.Rebind(`UPDATE ingest_runs SET finished_at = ?, status = ?, row_count = ?, error = ? WHERE id = ?`)
	res, err := l.db.ExecContext(ctx, query, l.now(), status, rows, msg, id)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("record run finish: no run %s", id)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (l *RunLog) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	query := l.db.Rebind(`SELECT id, source, started_at, finished_at, status, row_count, error
		FROM ingest_runs ORDER BY started_at DESC LIMIT ?`)
	if err := l.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
