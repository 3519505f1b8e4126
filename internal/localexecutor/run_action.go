package localexecutor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/executor"
	"github.com/specialistvlad/stageplan/internal/handlers"
	"github.com/specialistvlad/stageplan/internal/planner"
	"github.com/specialistvlad/stageplan/internal/secrets"
)

// RunAction implements executor.ActionRunner. It never returns an error: every
// problem is expressed as a failed or cancelled outcome.
func (e *Executor) RunAction(ctx context.Context, runID string, a planner.PlannedAction) (outcome executor.Outcome) {
	logger := ctxlog.FromContext(ctx).With("action", a.Name, "uses", usesName(a))

	if err := ctx.Err(); err != nil {
		logger.Info("⏹️ Action cancelled before start.")
		return executor.Cancelled(err.Error())
	}

	handler, ok := e.handlers.Lookup(a.Uses)
	if !ok {
		return executor.FailedWithCode(executor.CodeHandlerNotFound, fmt.Sprintf("no handler registered for '%s'", usesName(a)))
	}

	resolved, err := secrets.ResolveAll(ctx, e.secrets, a.Secrets)
	if err != nil {
		logger.Error("Action secrets unavailable.", "error", err)
		return executor.FailedWithCode(executor.CodeSecretUnavailable, err.Error())
	}

	req := &handlers.Request{
		RunID:   runID,
		Action:  a,
		Inputs:  e.dirs(a.Inputs),
		Outputs: e.dirs(a.Outputs),
		Secrets: resolved,
	}
	for _, dir := range req.Outputs {
		if err := resetDir(dir); err != nil {
			return executor.Failed(fmt.Sprintf("prepare output directory: %v", err))
		}
	}

	timeout, err := handlers.Duration(a.Config, "timeout", e.opts.DefaultTimeout)
	if err != nil {
		return executor.Failed(err.Error())
	}
	actx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("❌ Action handler panicked.", "panic", r)
			outcome = executor.Failed(fmt.Sprintf("handler panicked: %v", r))
		}
	}()

	logger.Info("▶️ Running action")
	res, err := handler.Run(actx, req)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			logger.Info("⏹️ Action cancelled.", "error", err)
			return executor.Cancelled(ctx.Err().Error())
		case errors.Is(actx.Err(), context.DeadlineExceeded):
			logger.Error("⏱️ Action timed out.", "timeout", timeout.String())
			return executor.FailedWithCode(executor.CodeTimeout, fmt.Sprintf("exceeded timeout of %s", timeout))
		}
		logger.Error("❌ Action failed.", "error", err)
		return executor.Failed(err.Error())
	}

	confirmed := e.confirm(req, res)
	logger.Info("✅ Action succeeded", "outputs", confirmed)
	return executor.Succeeded(confirmed...)
}

// dirs maps artifact ids to their workspace directories.
func (e *Executor) dirs(bindings []planner.ArtifactBinding) map[string]string {
	out := make(map[string]string, len(bindings))
	for _, b := range bindings {
		out[b.ID] = filepath.Join(e.opts.Workspace, filepath.FromSlash(b.Location))
	}
	return out
}

// resetDir empties an output directory so nothing from an earlier run of the
// same plan survives into this one.
func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// confirm returns the outputs confirmed by the handler result, or, when the
// handler left that to the executor, every output whose directory holds at
// least one entry.
func (e *Executor) confirm(req *handlers.Request, res *handlers.Result) []string {
	if res != nil && res.Outputs != nil {
		return res.Outputs
	}
	var confirmed []string
	for _, id := range req.Action.OutputIDs() {
		entries, err := os.ReadDir(req.Outputs[id])
		if err == nil && len(entries) > 0 {
			confirmed = append(confirmed, id)
		}
	}
	return confirmed
}
