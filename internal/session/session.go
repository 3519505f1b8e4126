// Package session defines the core interfaces for creating and managing an
// execution session. It abstracts away the details of local vs. remote execution.
package session

import (
	"context"

	"github.com/specialistvlad/stageplan/internal/executor"
	"github.com/specialistvlad/stageplan/internal/handlers"
	"github.com/specialistvlad/stageplan/internal/planner"
)

// SessionFactory creates an execution Session. Different implementations can
// support various backends, such as local or distributed execution.
type SessionFactory interface {
	NewSession(
		ctx context.Context,
		plan *planner.ExecutionPlan,
		reg *handlers.Handlers,
	) (Session, error)
}

// Session represents a single execution run and manages its lifecycle.
type Session interface {
	// ID returns the run id of the session.
	ID() string
	GetExecutor() (executor.Executor, error)
	// Close records the final state of the run and releases any resources
	// held by the session.
	Close(ctx context.Context) error
}
