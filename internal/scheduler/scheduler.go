package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/executor"
	"github.com/specialistvlad/stageplan/internal/node"
	"github.com/specialistvlad/stageplan/internal/nodeid"
	"github.com/specialistvlad/stageplan/internal/nodestore"
	"github.com/specialistvlad/stageplan/internal/planner"
)

var (
	// ErrDuplicateReport is returned for a second report of the same action.
	ErrDuplicateReport = errors.New("action already reported")
	// ErrNotInOpenWave is returned for a report of an action that is not
	// part of the currently open wave.
	ErrNotInOpenWave = errors.New("action is not part of the open wave")
)

// WaveGate is the reference implementation of Scheduler.
type WaveGate struct {
	plan  *planner.ExecutionPlan
	store nodestore.Store

	mu       sync.Mutex
	started  bool
	finished bool
	open     int
	pending  map[string]planner.PlannedAction
	waveDone chan struct{}
	outcomes map[string]executor.Outcome
	skipped  []string
	failure  *executor.ExecutionError
}

// New creates a wave gate for plan that records run state in store.
func New(plan *planner.ExecutionPlan, store nodestore.Store) *WaveGate {
	return &WaveGate{
		plan:     plan,
		store:    store,
		open:     -1,
		outcomes: make(map[string]executor.Outcome, plan.ActionCount()),
	}
}

var _ Scheduler = (*WaveGate)(nil)

// ReadyWaves implements Scheduler.
func (g *WaveGate) ReadyWaves(ctx context.Context) <-chan planner.Wave {
	ch := make(chan planner.Wave)

	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		ctxlog.FromContext(ctx).Warn("Scheduler: ReadyWaves called on a started gate.")
		close(ch)
		return ch
	}
	g.started = true
	g.mu.Unlock()

	go g.run(ctx, ch)
	return ch
}

func (g *WaveGate) run(ctx context.Context, ch chan<- planner.Wave) {
	logger := ctxlog.FromContext(ctx)
	defer close(ch)

	released := 0
	for _, wave := range g.plan.Waves {
		done, err := g.openWave(ctx, wave)
		if err != nil {
			logger.Error("Scheduler: Failed to open wave.", "wave", wave.Index, "error", err)
			g.halt(&executor.ExecutionError{Action: wave.Actions[0].Name, Code: executor.CodeExecutionFailed, Reason: err.Error()})
			break
		}

		logger.Debug("Scheduler: Releasing wave.", "wave", wave.Index, "action_count", len(wave.Actions))
		select {
		case ch <- wave:
			released++
		case <-ctx.Done():
			g.halt(&executor.ExecutionError{Action: wave.Actions[0].Name, Code: executor.CodeCancelled, Reason: ctx.Err().Error()})
			logger.Info("Scheduler: Gate halted before release.", "wave", wave.Index)
		}
		if released <= wave.Index {
			break
		}

		select {
		case <-done:
		case <-ctx.Done():
			g.halt(&executor.ExecutionError{Action: wave.Actions[0].Name, Code: executor.CodeCancelled, Reason: ctx.Err().Error()})
		}

		if g.halted() {
			logger.Info("Scheduler: Gate halted.", "wave", wave.Index, "error", g.Err())
			break
		}
	}

	g.skipRemaining(ctx, released)

	g.mu.Lock()
	g.finished = true
	g.mu.Unlock()
	logger.Debug("Scheduler: All waves processed.", "status", g.Status().String())
}

// openWave marks the actions of wave as Running and makes it the open wave.
func (g *WaveGate) openWave(ctx context.Context, wave planner.Wave) (<-chan struct{}, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.open = wave.Index
	g.pending = make(map[string]planner.PlannedAction, len(wave.Actions))
	g.waveDone = make(chan struct{})
	for _, a := range wave.Actions {
		g.pending[a.Name] = a
		if err := g.store.SetStatus(ctx, nodeid.New(a.Stage, a.Name), node.StatusRunning); err != nil {
			return nil, fmt.Errorf("mark action '%s' running: %w", a.Name, err)
		}
	}
	if len(g.pending) == 0 {
		close(g.waveDone)
	}
	return g.waveDone, nil
}

// Report implements executor.Reporter.
func (g *WaveGate) Report(ctx context.Context, action string, outcome executor.Outcome) error {
	logger := ctxlog.FromContext(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.outcomes[action]; ok {
		return fmt.Errorf("report for '%s': %w", action, ErrDuplicateReport)
	}
	planned, ok := g.pending[action]
	if !ok {
		return fmt.Errorf("report for '%s' (open wave %d): %w", action, g.open, ErrNotInOpenWave)
	}

	if outcome.IsSuccess() {
		if missing := missingOutputs(planned, outcome.Outputs); len(missing) > 0 {
			outcome = executor.FailedWithCode(executor.CodeMissingOutput,
				fmt.Sprintf("declared outputs not confirmed: %s", strings.Join(missing, ", ")))
		}
	}

	delete(g.pending, action)
	g.outcomes[action] = outcome
	logger.Debug("Scheduler: Outcome recorded.", "action", action, "outcome", outcome.String())

	if err := g.persist(ctx, planned, outcome); err != nil {
		return err
	}

	if !outcome.IsSuccess() {
		g.haltLocked(&executor.ExecutionError{Action: action, Code: outcome.Code, Reason: outcome.Reason})
	}
	if len(g.pending) == 0 {
		g.closeWaveLocked()
	}
	return nil
}

func (g *WaveGate) persist(ctx context.Context, a planner.PlannedAction, outcome executor.Outcome) error {
	id := nodeid.New(a.Stage, a.Name)
	status := node.StatusSucceeded
	switch outcome.Kind {
	case executor.OutcomeFailed:
		status = node.StatusFailed
	case executor.OutcomeCancelled:
		status = node.StatusCancelled
	}

	if err := g.store.SetStatus(ctx, id, status); err != nil {
		return fmt.Errorf("record status of '%s': %w", a.Name, err)
	}
	if outcome.IsSuccess() {
		if err := g.store.SetOutput(ctx, id, outcome.Outputs); err != nil {
			return fmt.Errorf("record outputs of '%s': %w", a.Name, err)
		}
		return nil
	}
	if err := g.store.SetError(ctx, id, outcome.Err(a.Name)); err != nil {
		return fmt.Errorf("record error of '%s': %w", a.Name, err)
	}
	return nil
}

func missingOutputs(a planner.PlannedAction, confirmed []string) []string {
	have := make(map[string]struct{}, len(confirmed))
	for _, id := range confirmed {
		have[id] = struct{}{}
	}
	var missing []string
	for _, id := range a.OutputIDs() {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func (g *WaveGate) halt(err *executor.ExecutionError) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.haltLocked(err)
}

// haltLocked records the first failure. A failure always takes precedence
// over a cancellation recorded before it.
func (g *WaveGate) haltLocked(err *executor.ExecutionError) {
	if g.failure == nil || (g.failure.Code == executor.CodeCancelled && err.Code != executor.CodeCancelled) {
		g.failure = err
	}
	g.closeWaveLocked()
}

func (g *WaveGate) closeWaveLocked() {
	if g.waveDone == nil {
		return
	}
	select {
	case <-g.waveDone:
	default:
		close(g.waveDone)
	}
}

func (g *WaveGate) halted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failure != nil
}

func (g *WaveGate) skipRemaining(ctx context.Context, released int) {
	logger := ctxlog.FromContext(ctx)
	if released >= len(g.plan.Waves) {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, wave := range g.plan.Waves[released:] {
		for _, a := range wave.Actions {
			g.skipped = append(g.skipped, a.Name)
			// The store may be unusable at this point; skipping is best effort.
			if err := g.store.SetStatus(context.WithoutCancel(ctx), nodeid.New(a.Stage, a.Name), node.StatusSkipped); err != nil {
				logger.Warn("Scheduler: Failed to mark action skipped.", "action", a.Name, "error", err)
			}
		}
	}
	logger.Debug("Scheduler: Marked unreleased actions skipped.", "skipped_count", len(g.skipped))
}

// Status implements Scheduler.
func (g *WaveGate) Status() node.Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case g.failure != nil && g.failure.Code == executor.CodeCancelled:
		return node.StatusCancelled
	case g.failure != nil:
		return node.StatusFailed
	case g.finished:
		return node.StatusSucceeded
	case !g.started:
		return node.StatusPending
	}
	return node.StatusRunning
}

// Outcomes implements Scheduler.
func (g *WaveGate) Outcomes() map[string]executor.Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]executor.Outcome, len(g.outcomes))
	for k, v := range g.outcomes {
		out[k] = v
	}
	return out
}

// Skipped implements Scheduler.
func (g *WaveGate) Skipped() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.skipped...)
}

// Err implements Scheduler.
func (g *WaveGate) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failure == nil {
		return nil
	}
	return g.failure
}
