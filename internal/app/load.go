package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/stageplan/internal/config"
	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/pipeline"
	"github.com/specialistvlad/stageplan/internal/planner"
	"github.com/specialistvlad/stageplan/internal/resolver"
	"github.com/specialistvlad/stageplan/internal/stagegraph"
)

// Compile turns a definition into an execution plan. A validation failure is
// returned as pipeline.ValidationErrors listing every problem found.
func Compile(ctx context.Context, def *pipeline.Definition) (*planner.ExecutionPlan, error) {
	g, err := stagegraph.Build(ctx, def)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("App: Stage graph built.", "pipeline", g.Name(), "stage_count", len(g.Stages()), "edge_count", g.EdgeCount())
	rg, err := resolver.Resolve(ctx, g)
	if err != nil {
		return nil, err
	}
	return planner.Plan(ctx, rg)
}

// PipelineError ties a compile error to the pipeline it came from.
type PipelineError struct {
	Pipeline   string
	SourceFile string
	Err        error
}

func (e *PipelineError) Error() string {
	if e.SourceFile != "" {
		return fmt.Sprintf("pipeline '%s' (%s): %v", e.Pipeline, e.SourceFile, e.Err)
	}
	return fmt.Sprintf("pipeline '%s': %v", e.Pipeline, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// loadDefinitions loads every configured path and applies the selection.
func (a *App) loadDefinitions(ctx context.Context) ([]*pipeline.Definition, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("App: Loading pipelines.", "paths", a.config.PipelinePaths)

	defs, err := a.loader.Load(ctx, a.config.PipelinePaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	defs, err = config.Select(defs, a.config.Select)
	if err != nil {
		return nil, err
	}
	logger.Info("Pipelines loaded.", "count", len(defs))
	return defs, nil
}

// compileAll compiles every definition. Every failing pipeline is reported,
// not only the first.
func (a *App) compileAll(ctx context.Context, defs []*pipeline.Definition) ([]*planner.ExecutionPlan, error) {
	logger := ctxlog.FromContext(ctx)

	plans := make([]*planner.ExecutionPlan, 0, len(defs))
	var errs []error
	for _, def := range defs {
		plan, err := Compile(ctx, def)
		if err != nil {
			logger.Error("❌ Pipeline is invalid.", "pipeline", def.Name, "error", err)
			errs = append(errs, &PipelineError{Pipeline: def.Name, SourceFile: def.SourceFile, Err: err})
			continue
		}
		logger.Debug("App: Pipeline compiled.", "pipeline", plan.Pipeline, "wave_count", len(plan.Waves), "fingerprint", plan.Fingerprint)
		plans = append(plans, plan)
	}
	return plans, errors.Join(errs...)
}
