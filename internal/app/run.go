package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/executor"
	"github.com/specialistvlad/stageplan/internal/localexecutor"
	"github.com/specialistvlad/stageplan/internal/localsession"
	"github.com/specialistvlad/stageplan/internal/planner"
	"github.com/specialistvlad/stageplan/internal/session"
)

// Run executes the main application logic based on the configured mode.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App: Run started.", "mode", string(a.config.Mode))

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(ctx, a.config.HealthcheckPort)
		defer a.closeHealthcheckServer(ctx)
	}

	defs, err := a.loadDefinitions(ctx)
	if err != nil {
		return err
	}
	plans, compileErr := a.compileAll(ctx, defs)
	a.setPlans(plans)

	switch a.config.Mode {
	case ModeValidate:
		if err := a.render(validationReport(defs, compileErr)); err != nil {
			return err
		}
		return compileErr
	case ModePlan:
		if compileErr != nil {
			return compileErr
		}
		return a.render(plans)
	}

	if compileErr != nil {
		return compileErr
	}
	summaries, runErr := a.runAll(ctx, plans)
	if err := a.render(summaries); err != nil {
		return err
	}
	return runErr
}

// runAll runs the plans one after another and stops at the first failed run.
func (a *App) runAll(ctx context.Context, plans []*planner.ExecutionPlan) ([]*executor.Summary, error) {
	factory := &localsession.SessionFactory{
		Options: localexecutor.Options{
			Workers:        a.config.Workers,
			DefaultTimeout: a.config.DefaultTimeout,
			CancelSiblings: true,
			Workspace:      a.config.Workspace,
		},
		Secrets: a.secrets,
		DB:      a.db,
	}

	var summaries []*executor.Summary
	for _, plan := range plans {
		summary, err := a.runPlan(ctx, factory, plan)
		if summary != nil {
			summaries = append(summaries, summary)
		}
		if err != nil {
			return summaries, fmt.Errorf("pipeline '%s': %w", plan.Pipeline, err)
		}
	}
	return summaries, nil
}

func (a *App) runPlan(ctx context.Context, factory session.SessionFactory, plan *planner.ExecutionPlan) (summary *executor.Summary, err error) {
	logger := ctxlog.FromContext(ctx).With("pipeline", plan.Pipeline)

	if err := a.handlers.Validate(plan); err != nil {
		return nil, err
	}

	sess, err := factory.NewSession(ctx, plan, a.handlers)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	defer func() {
		if closeErr := sess.Close(context.WithoutCancel(ctx)); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	exec, err := sess.GetExecutor()
	if err != nil {
		return nil, fmt.Errorf("failed to get executor: %w", err)
	}

	logger.Info("🚀 Starting pipeline run.", "run_id", sess.ID(), "wave_count", len(plan.Waves), "action_count", plan.ActionCount())
	summary, err = exec.Execute(ctx, plan)
	if summary != nil {
		logger.Info("🏁 Pipeline run finished.", "run_id", sess.ID(), "status", summary.Status.String(), "duration", summary.Duration().String())
	}
	return summary, err
}
