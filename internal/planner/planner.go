package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/pipeline"
	"github.com/specialistvlad/stageplan/internal/resolver"
)

// ErrStalled is returned when layering cannot place every action. A resolved
// graph is acyclic, so this indicates an inconsistent input.
var ErrStalled = errors.New("planner stalled: remaining actions have unsatisfiable dependencies")

// Plan layers rg into waves.
func Plan(ctx context.Context, rg *resolver.ResolvedGraph) (*ExecutionPlan, error) {
	logger := ctxlog.FromContext(ctx)
	if rg == nil {
		return nil, errors.New("cannot plan nil resolved graph")
	}
	logger.Debug("Plan: Starting wave layering.", "pipeline", rg.Pipeline, "action_count", len(rg.Actions))

	inDegree := make(map[string]int, len(rg.Actions))
	for _, a := range rg.Actions {
		inDegree[a.Name()] = len(a.Direct)
	}

	plan := &ExecutionPlan{Pipeline: rg.Pipeline}
	placed := 0
	for placed < len(rg.Actions) {
		var ready []*resolver.Action
		for _, a := range rg.Actions {
			if d, pending := inDegree[a.Name()]; pending && d == 0 {
				ready = append(ready, a)
			}
		}
		if len(ready) == 0 {
			return nil, fmt.Errorf("%w (%d of %d placed)", ErrStalled, placed, len(rg.Actions))
		}

		wave := Wave{Index: len(plan.Waves), Actions: make([]PlannedAction, 0, len(ready))}
		for _, a := range ready {
			delete(inDegree, a.Name())
			wave.Actions = append(wave.Actions, plannedAction(rg, a))
		}
		// Release dependents only after the whole wave is fixed, so that no
		// action joins the wave of its own producer.
		for _, a := range ready {
			for _, down := range a.Downstream {
				if _, pending := inDegree[down]; pending {
					inDegree[down]--
				}
			}
		}

		plan.Waves = append(plan.Waves, wave)
		placed += len(ready)
		logger.Debug("Plan: Wave emitted.", "wave", wave.Index, "action_count", len(wave.Actions))
	}

	fp, err := fingerprint(plan.Waves)
	if err != nil {
		return nil, err
	}
	plan.Fingerprint = fp

	logger.Debug("Plan: Planning successful.", "pipeline", rg.Pipeline, "wave_count", len(plan.Waves), "fingerprint", fp)
	return plan, nil
}

func plannedAction(rg *resolver.ResolvedGraph, a *resolver.Action) PlannedAction {
	src := a.Node.Action
	pa := PlannedAction{
		Name:    a.Name(),
		Stage:   a.Node.Stage(),
		Kind:    src.Kind,
		Uses:    src.Uses,
		Inputs:  bindings(rg, a.Inputs),
		Outputs: bindings(rg, a.Outputs),
	}
	clone := src.Clone()
	pa.Config = clone.Config
	pa.Secrets = clone.Secrets
	return pa
}

func bindings(rg *resolver.ResolvedGraph, refs []pipeline.ArtifactRef) []ArtifactBinding {
	out := make([]ArtifactBinding, 0, len(refs))
	for _, r := range refs {
		loc, _ := rg.Location(r.ID)
		out = append(out, ArtifactBinding{ID: r.ID, ProducedBy: r.ProducedBy, Location: loc})
	}
	return out
}
