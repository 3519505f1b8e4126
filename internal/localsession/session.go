// Package localsession provides a concrete implementation of the session.Session
// and session.SessionFactory interfaces for local, in-process execution.
package localsession

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/executor"
	"github.com/specialistvlad/stageplan/internal/handlers"
	"github.com/specialistvlad/stageplan/internal/inmemorystore"
	"github.com/specialistvlad/stageplan/internal/localexecutor"
	"github.com/specialistvlad/stageplan/internal/nodestore"
	"github.com/specialistvlad/stageplan/internal/planner"
	"github.com/specialistvlad/stageplan/internal/scheduler"
	"github.com/specialistvlad/stageplan/internal/secrets"
	"github.com/specialistvlad/stageplan/internal/session"
	"github.com/specialistvlad/stageplan/internal/sqlitestore"
)

// SessionFactory implements session.SessionFactory for local runs.
type SessionFactory struct {
	// Options configures every executor created by the factory.
	Options localexecutor.Options
	// Secrets resolves secret references. Nil rejects every reference.
	Secrets secrets.Resolver
	// DB, when set, records run history and action state in SQLite.
	// Otherwise run state is kept in memory.
	DB *sql.DB
}

var _ session.SessionFactory = (*SessionFactory)(nil)

// NewSession creates and configures a new local session.
func (f *SessionFactory) NewSession(
	ctx context.Context,
	plan *planner.ExecutionPlan,
	reg *handlers.Handlers,
) (session.Session, error) {
	logger := ctxlog.FromContext(ctx)
	runID := uuid.NewString()

	var (
		store nodestore.Store
		runs  *sqlitestore.RunLog
	)
	if f.DB != nil {
		runs = sqlitestore.NewRunLog(f.DB)
		if _, err := runs.Start(ctx, runID, plan.Pipeline, plan.Fingerprint); err != nil {
			return nil, fmt.Errorf("start run: %w", err)
		}
		store = sqlitestore.New(f.DB, runID)
	} else {
		store = inmemorystore.New()
	}

	sched := scheduler.New(plan, store)
	exec := localexecutor.New(runID, sched, reg, f.Secrets, f.Options)

	logger.Debug("Session: Created local session.", "run_id", runID, "persistent", runs != nil)
	return &Session{
		id:       runID,
		executor: exec,
		sched:    sched,
		store:    store,
		runs:     runs,
	}, nil
}

// Session implements session.Session for local runs.
type Session struct {
	id       string
	executor executor.Executor
	sched    scheduler.Scheduler
	store    nodestore.Store
	runs     *sqlitestore.RunLog
}

// ID returns the run id.
func (s *Session) ID() string {
	return s.id
}

// GetExecutor returns the executor that was created and wired up by the factory.
func (s *Session) GetExecutor() (executor.Executor, error) {
	return s.executor, nil
}

// Store returns the run-state store of the session.
func (s *Session) Store() nodestore.Store {
	return s.store
}

// Close records the final run status when run history is enabled.
func (s *Session) Close(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	status := s.sched.Status()
	logger.Debug("Session: Closing.", "run_id", s.id, "status", status.String())
	if s.runs == nil {
		return nil
	}
	if err := s.runs.Finish(ctx, s.id, status); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}
