package localexecutor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/executor"
	"github.com/specialistvlad/stageplan/internal/handlers"
	"github.com/specialistvlad/stageplan/internal/planner"
	"github.com/specialistvlad/stageplan/internal/scheduler"
	"github.com/specialistvlad/stageplan/internal/secrets"
)

// DefaultWorkers bounds the actions of one wave running at the same time.
const DefaultWorkers = 10

// Options tunes the local executor.
type Options struct {
	// Workers bounds concurrent actions per wave. Values <= 0 use DefaultWorkers.
	Workers int
	// DefaultTimeout applies to actions without a "timeout" config key.
	// Zero disables the timeout.
	DefaultTimeout time.Duration
	// CancelSiblings cancels the running actions of a wave once one of them
	// fails.
	CancelSiblings bool
	// Workspace is the root directory artifact locations are resolved against.
	Workspace string
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{Workers: DefaultWorkers, CancelSiblings: true, Workspace: "."}
}

// Executor implements executor.Executor and executor.ActionRunner for local
// execution.
type Executor struct {
	runID    string
	sched    scheduler.Scheduler
	handlers *handlers.Handlers
	secrets  secrets.Resolver
	opts     Options
}

var (
	_ executor.Executor     = (*Executor)(nil)
	_ executor.ActionRunner = (*Executor)(nil)
)

// New creates a local executor for one run.
func New(
	runID string,
	sch scheduler.Scheduler,
	reg *handlers.Handlers,
	sec secrets.Resolver,
	opts Options,
) *Executor {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Workspace == "" {
		opts.Workspace = "."
	}
	if sec == nil {
		sec = secrets.NewRouter()
	}
	return &Executor{
		runID:    runID,
		sched:    sch,
		handlers: reg,
		secrets:  sec,
		opts:     opts,
	}
}

// Execute runs every wave released by the scheduler and returns the run
// summary. The error is the first *executor.ExecutionError of the run.
func (e *Executor) Execute(ctx context.Context, plan *planner.ExecutionPlan) (*executor.Summary, error) {
	logger := ctxlog.FromContext(ctx).With("run_id", e.runID, "pipeline", plan.Pipeline)

	if err := e.preflight(plan); err != nil {
		logger.Error("Execute: Preflight failed.", "error", err)
		return nil, err
	}

	summary := &executor.Summary{
		RunID:       e.runID,
		Pipeline:    plan.Pipeline,
		Fingerprint: plan.Fingerprint,
		StartedAt:   time.Now(),
	}

	logger.Info("Execute: Starting run.", "wave_count", len(plan.Waves), "action_count", plan.ActionCount(), "workers", e.opts.Workers)
	for wave := range e.sched.ReadyWaves(ctx) {
		e.runWave(ctx, wave)
	}

	summary.FinishedAt = time.Now()
	summary.Status = e.sched.Status()
	summary.Outcomes = e.sched.Outcomes()
	summary.Skipped = e.sched.Skipped()

	err := e.sched.Err()
	if err != nil {
		logger.Error("Execute: Run did not succeed.", "status", summary.Status.String(), "skipped", len(summary.Skipped), "error", err)
	} else {
		logger.Info("Execute: Run succeeded.", "duration", summary.Duration().String())
	}
	return summary, err
}

// preflight fails the run before any side effect when an action names an
// unregistered handler.
func (e *Executor) preflight(plan *planner.ExecutionPlan) error {
	for _, w := range plan.Waves {
		for _, a := range w.Actions {
			if _, ok := e.handlers.Lookup(a.Uses); !ok {
				return &executor.ExecutionError{
					Action: a.Name,
					Code:   executor.CodeHandlerNotFound,
					Reason: fmt.Sprintf("no handler registered for '%s'", usesName(a)),
				}
			}
		}
	}
	return nil
}

func (e *Executor) runWave(ctx context.Context, wave planner.Wave) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Execute: Running wave.", "wave", wave.Index, "action_count", len(wave.Actions))

	waveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, e.opts.Workers)
	var wg sync.WaitGroup
	for _, action := range wave.Actions {
		wg.Add(1)
		go func(a planner.PlannedAction) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			outcome := e.RunAction(waveCtx, e.runID, a)
			if !outcome.IsSuccess() && e.opts.CancelSiblings {
				cancel()
			}
			if err := e.sched.Report(ctx, a.Name, outcome); err != nil {
				logger.Error("Execute: Failed to report outcome.", "action", a.Name, "error", err)
			}
		}(action)
	}
	wg.Wait()
}

func usesName(a planner.PlannedAction) string {
	if a.Uses == "" {
		return handlers.DefaultHandler
	}
	return a.Uses
}
