package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/stageplan/internal/node"
	"github.com/specialistvlad/stageplan/internal/nodeid"
	"github.com/specialistvlad/stageplan/internal/nodestore"
)

// Store implements nodestore.Store on the action_state table for one run.
// The run must have been started through RunLog.Start.
type Store struct {
	db    *sql.DB
	runID string
	now   func() time.Time
}

// New returns the state store of run runID.
func New(db *sql.DB, runID string) *Store {
	return &Store{db: db, runID: runID, now: time.Now}
}

var _ nodestore.Store = (*Store)(nil)

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// SetStatus implements nodestore.Store.
func (s *Store) SetStatus(ctx context.Context, id nodeid.Address, status node.Status) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO action_state (run_id, stage, action, status, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, stage, action) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at;`,
		s.runID, id.Stage, id.Action, status.String(), s.timestamp())
	if err != nil {
		return fmt.Errorf("set status of %s: %w", id, err)
	}
	return nil
}

// GetStatus implements nodestore.Store.
func (s *Store) GetStatus(ctx context.Context, id nodeid.Address) (node.Status, error) {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM action_state WHERE run_id = ? AND stage = ? AND action = ?;`,
		s.runID, id.Stage, id.Action).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return node.StatusPending, nil
	}
	if err != nil {
		return node.StatusPending, fmt.Errorf("get status of %s: %w", id, err)
	}
	return node.ParseStatus(status)
}

// SetOutput implements nodestore.Store.
func (s *Store) SetOutput(ctx context.Context, id nodeid.Address, outputs []string) error {
	if outputs == nil {
		outputs = []string{}
	}
	body, err := json.Marshal(outputs)
	if err != nil {
		return fmt.Errorf("encode outputs of %s: %w", id, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO action_state (run_id, stage, action, outputs, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, stage, action) DO UPDATE SET outputs = excluded.outputs, updated_at = excluded.updated_at;`,
		s.runID, id.Stage, id.Action, string(body), s.timestamp())
	if err != nil {
		return fmt.Errorf("set outputs of %s: %w", id, err)
	}
	return nil
}

// GetOutput implements nodestore.Store.
func (s *Store) GetOutput(ctx context.Context, id nodeid.Address) ([]string, error) {
	var body sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT outputs FROM action_state WHERE run_id = ? AND stage = ? AND action = ?;`,
		s.runID, id.Stage, id.Action).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !body.Valid) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get outputs of %s: %w", id, err)
	}
	var outputs []string
	if err := json.Unmarshal([]byte(body.String), &outputs); err != nil {
		return nil, fmt.Errorf("decode outputs of %s: %w", id, err)
	}
	return outputs, nil
}

// SetError implements nodestore.Store. Only the message survives the
// round-trip.
func (s *Store) SetError(ctx context.Context, id nodeid.Address, nodeErr error) error {
	var msg sql.NullString
	if nodeErr != nil {
		msg = sql.NullString{String: nodeErr.Error(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO action_state (run_id, stage, action, last_error, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, stage, action) DO UPDATE SET last_error = excluded.last_error, updated_at = excluded.updated_at;`,
		s.runID, id.Stage, id.Action, msg, s.timestamp())
	if err != nil {
		return fmt.Errorf("set error of %s: %w", id, err)
	}
	return nil
}

// GetError implements nodestore.Store.
func (s *Store) GetError(ctx context.Context, id nodeid.Address) (error, error) {
	var msg sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT last_error FROM action_state WHERE run_id = ? AND stage = ? AND action = ?;`,
		s.runID, id.Stage, id.Action).Scan(&msg)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !msg.Valid) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get error of %s: %w", id, err)
	}
	return errors.New(msg.String), nil
}

// ActionState is one row of the action_state table.
type ActionState struct {
	ID      nodeid.Address
	Status  node.Status
	Outputs []string
	Error   string
}

// States returns the state of every action of the run that has one,
// ordered by stage and action name.
func (s *Store) States(ctx context.Context) ([]ActionState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, action, status, outputs, last_error FROM action_state
		 WHERE run_id = ? ORDER BY stage, action;`, s.runID)
	if err != nil {
		return nil, fmt.Errorf("list action states: %w", err)
	}
	defer rows.Close()

	var states []ActionState
	for rows.Next() {
		var (
			st      ActionState
			status  string
			outputs sql.NullString
			lastErr sql.NullString
		)
		if err := rows.Scan(&st.ID.Stage, &st.ID.Action, &status, &outputs, &lastErr); err != nil {
			return nil, fmt.Errorf("scan action state: %w", err)
		}
		if st.Status, err = node.ParseStatus(status); err != nil {
			return nil, err
		}
		if outputs.Valid {
			if err := json.Unmarshal([]byte(outputs.String), &st.Outputs); err != nil {
				return nil, fmt.Errorf("decode outputs of %s: %w", st.ID, err)
			}
		}
		st.Error = lastErr.String
		states = append(states, st)
	}
	return states, rows.Err()
}
