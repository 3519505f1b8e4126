package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/stageplan/internal/node"
)

// ErrRunNotFound is returned when no run with the requested id exists.
var ErrRunNotFound = errors.New("run not found")

// Run is one row of the run history.
type Run struct {
	ID          string
	Pipeline    string
	Fingerprint string
	Status      node.Status
	StartedAt   time.Time
	FinishedAt  *time.Time
}

// RunLog records the history of plan executions.
type RunLog struct {
	db  *sql.DB
	now func() time.Time
}

// NewRunLog creates a run log over an opened database.
func NewRunLog(db *sql.DB) *RunLog {
	return &RunLog{db: db, now: time.Now}
}

// Start inserts a running entry for a new run. An empty id is replaced by a
// fresh UUID. It returns the id of the run.
func (l *RunLog) Start(ctx context.Context, id, pipeline, fingerprint string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, pipeline, fingerprint, status, started_at) VALUES (?, ?, ?, ?, ?);`,
		id, pipeline, fingerprint, node.StatusRunning.String(), l.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("insert run %s: %w", id, err)
	}
	return id, nil
}

// Finish stores the final status of a run.
func (l *RunLog) Finish(ctx context.Context, id string, status node.Status) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?;`,
		status.String(), l.now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// Get returns a single run.
func (l *RunLog) Get(ctx context.Context, id string) (*Run, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, pipeline, fingerprint, status, started_at, finished_at FROM runs WHERE id = ?;`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// List returns the most recent runs of a pipeline, newest first. An empty
// pipeline name lists every pipeline.
func (l *RunLog) List(ctx context.Context, pipeline string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, pipeline, fingerprint, status, started_at, finished_at FROM runs
		 WHERE (? = '' OR pipeline = ?)
		 ORDER BY started_at DESC LIMIT ?;`, pipeline, pipeline, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run      Run
		status   string
		started  string
		finished sql.NullString
	)
	if err := s.Scan(&run.ID, &run.Pipeline, &run.Fingerprint, &status, &started, &finished); err != nil {
		return nil, err
	}

	var err error
	if run.Status, err = node.ParseStatus(status); err != nil {
		return nil, err
	}
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if finished.Valid {
		ts, err := time.Parse(time.RFC3339Nano, finished.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &ts
	}
	return &run, nil
}
