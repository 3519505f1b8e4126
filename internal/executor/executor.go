// Package executor defines the boundary between the plan compiler and the
// systems that actually perform actions.
//
// The compiler emits an ExecutionPlan. An Executor walks its waves, performs
// each action through an ActionRunner and reports one Outcome per action per
// attempt to a Reporter. All I/O, timeouts and retries live behind this
// boundary; the core never retries an ExecutionError.
package executor

import (
	"context"
	"time"

	"github.com/specialistvlad/stageplan/internal/node"
	"github.com/specialistvlad/stageplan/internal/planner"
)

// Executor runs an execution plan to completion or to its first failure.
type Executor interface {
	Execute(ctx context.Context, plan *planner.ExecutionPlan) (*Summary, error)
}

// Reporter receives the outcome of each action. It is invoked once per action
// per execution attempt.
type Reporter interface {
	Report(ctx context.Context, action string, outcome Outcome) error
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, action string, outcome Outcome) error

// Report implements Reporter.
func (f ReporterFunc) Report(ctx context.Context, action string, outcome Outcome) error {
	return f(ctx, action, outcome)
}

// ActionRunner performs a single planned action.
type ActionRunner interface {
	RunAction(ctx context.Context, runID string, action planner.PlannedAction) Outcome
}

// Summary describes a finished run.
type Summary struct {
	RunID       string
	Pipeline    string
	Fingerprint string
	// Status is StatusSucceeded, StatusFailed or StatusCancelled.
	Status node.Status
	// Outcomes holds the reported outcome of every started action.
	Outcomes map[string]Outcome
	// Skipped lists actions that never started, in plan order.
	Skipped    []string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded reports whether every action of the plan succeeded.
func (s *Summary) Succeeded() bool {
	return s != nil && s.Status == node.StatusSucceeded
}

// Duration returns the wall-clock duration of the run.
func (s *Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
