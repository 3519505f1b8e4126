package scheduler

import (
	"context"

	"github.com/specialistvlad/stageplan/internal/executor"
	"github.com/specialistvlad/stageplan/internal/node"
	"github.com/specialistvlad/stageplan/internal/planner"
)

// Scheduler releases the waves of one plan in order and collects the outcome
// of every action. A Scheduler is single-use: it drives exactly one run.
type Scheduler interface {
	executor.Reporter

	// ReadyWaves returns a channel that streams waves as they become
	// runnable. The scheduler closes the channel when the plan finished or
	// the gate halted. Only the first call starts the gate; later calls
	// return a closed channel.
	ReadyWaves(ctx context.Context) <-chan planner.Wave

	// Status returns the aggregate run status: StatusRunning while waves
	// remain, otherwise StatusSucceeded, StatusFailed or StatusCancelled.
	Status() node.Status

	// Outcomes returns the recorded outcome of every reported action.
	Outcomes() map[string]executor.Outcome

	// Skipped lists the actions that were never released, in plan order.
	Skipped() []string

	// Err returns the first failure or cancellation as an
	// *executor.ExecutionError, or nil.
	Err() error
}
