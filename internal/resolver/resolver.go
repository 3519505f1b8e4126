package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/node"
	"github.com/specialistvlad/stageplan/internal/pipeline"
)

// Graph is what Resolve needs from a stage graph. *stagegraph.Graph
// satisfies it.
type Graph interface {
	Name() string
	// Actions returns every action node in declaration order.
	Actions() []*node.Node
	DependenciesOf(ctx context.Context, action string) ([]*node.Node, error)
	DependentsOf(ctx context.Context, action string) ([]*node.Node, error)
}

// Option customises Resolve.
type Option func(*options)

type options struct {
	locator Locator
}

// WithLocator replaces DefaultLocator.
func WithLocator(l Locator) Option {
	return func(o *options) {
		if l != nil {
			o.locator = l
		}
	}
}

// Action is one action of a resolved graph.
type Action struct {
	Node *node.Node
	// Inputs and Outputs carry ProducedBy annotations.
	Inputs  []pipeline.ArtifactRef
	Outputs []pipeline.ArtifactRef
	// Direct lists the actions this one directly depends on.
	Direct []string
	// Upstream is the transitive closure of Direct.
	Upstream []string
	// Downstream lists the actions directly depending on this one.
	Downstream []string
}

// Name returns the action name.
func (a *Action) Name() string {
	return a.Node.Name()
}

// ResolvedGraph is an annotated, validated stage graph. All action lists are
// in declaration order.
type ResolvedGraph struct {
	Pipeline string
	Actions  []*Action
	// Locations maps artifact id to its storage location token.
	Locations map[string]string

	byName map[string]*Action
}

// Action looks up a resolved action by name.
func (r *ResolvedGraph) Action(name string) (*Action, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Location returns the storage location token of an artifact.
func (r *ResolvedGraph) Location(artifactID string) (string, bool) {
	loc, ok := r.Locations[artifactID]
	return loc, ok
}

// Resolve annotates g. On validation failure the error is a
// pipeline.ValidationErrors holding every problem found.
func Resolve(ctx context.Context, g Graph, opts ...Option) (*ResolvedGraph, error) {
	logger := ctxlog.FromContext(ctx)
	if g == nil {
		return nil, errors.New("cannot resolve nil graph")
	}
	o := &options{locator: DefaultLocator}
	for _, opt := range opts {
		opt(o)
	}

	nodes := g.Actions()
	logger.Debug("Resolve: Starting artifact resolution.", "pipeline", g.Name(), "action_count", len(nodes))

	r := &resolution{
		graph:     g,
		rg:        &ResolvedGraph{Pipeline: g.Name(), Locations: make(map[string]string), byName: make(map[string]*Action, len(nodes))},
		producers: make(map[string][]string),
		order:     make(map[string]int, len(nodes)),
	}
	for _, n := range nodes {
		a := &Action{Node: n}
		r.rg.Actions = append(r.rg.Actions, a)
		r.rg.byName[n.Name()] = a
		r.order[n.Name()] = n.Order
	}

	r.indexProducers()
	r.annotate()
	if err := r.linkDirect(ctx); err != nil {
		return nil, err
	}
	r.detectCycles()
	if len(r.errs) == 0 {
		r.computeUpstream()
	}
	r.assignLocations(o.locator)

	if len(r.errs) > 0 {
		logger.Debug("Resolve: Validation failed.", "pipeline", g.Name(), "error_count", len(r.errs))
		return nil, r.errs
	}
	logger.Debug("Resolve: Resolution successful.", "pipeline", g.Name(), "artifact_count", len(r.rg.Locations))
	return r.rg, nil
}

// resolution holds the working state of a single Resolve call.
type resolution struct {
	graph     Graph
	rg        *ResolvedGraph
	errs      pipeline.ValidationErrors
	producers map[string][]string
	// artifacts lists produced artifact ids in order of first declaration.
	artifacts []string
	order     map[string]int
}

func (r *resolution) indexProducers() {
	for _, a := range r.rg.Actions {
		for _, out := range pipeline.UniqueRefs(a.Node.Action.Outputs) {
			if _, ok := r.producers[out.ID]; !ok {
				r.artifacts = append(r.artifacts, out.ID)
			}
			r.producers[out.ID] = append(r.producers[out.ID], a.Name())
		}
	}
	for _, id := range r.artifacts {
		if ps := r.producers[id]; len(ps) > 1 {
			r.errs = append(r.errs, &pipeline.ValidationError{
				Code:       pipeline.CodeDuplicateArtifactProducer,
				ArtifactID: id,
				Producers:  append([]string(nil), ps...),
			})
		}
	}
}

func (r *resolution) annotate() {
	for _, a := range r.rg.Actions {
		for _, out := range pipeline.UniqueRefs(a.Node.Action.Outputs) {
			a.Outputs = append(a.Outputs, pipeline.ArtifactRef{ID: out.ID, ProducedBy: a.Name()})
		}
		for _, in := range pipeline.UniqueRefs(a.Node.Action.Inputs) {
			ps, ok := r.producers[in.ID]
			if !ok {
				r.errs = append(r.errs, &pipeline.ValidationError{
					Code:       pipeline.CodeUnresolvedArtifact,
					Stage:      a.Node.Stage(),
					Action:     a.Name(),
					ArtifactID: in.ID,
				})
				a.Inputs = append(a.Inputs, pipeline.ArtifactRef{ID: in.ID})
				continue
			}
			a.Inputs = append(a.Inputs, pipeline.ArtifactRef{ID: in.ID, ProducedBy: ps[0]})
		}
	}
}

func (r *resolution) linkDirect(ctx context.Context) error {
	for _, a := range r.rg.Actions {
		deps, err := r.graph.DependenciesOf(ctx, a.Name())
		if err != nil {
			return fmt.Errorf("failed to read dependencies of '%s': %w", a.Name(), err)
		}
		for _, d := range deps {
			a.Direct = append(a.Direct, d.Name())
		}
		dependents, err := r.graph.DependentsOf(ctx, a.Name())
		if err != nil {
			return fmt.Errorf("failed to read dependents of '%s': %w", a.Name(), err)
		}
		for _, d := range dependents {
			a.Downstream = append(a.Downstream, d.Name())
		}
		r.sortByOrder(a.Direct)
		r.sortByOrder(a.Downstream)
	}
	return nil
}

// detectCycles walks dependencies depth-first in declaration order and
// reports each distinct cycle once.
func (r *resolution) detectCycles() {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(r.rg.Actions))
	reported := make(map[string]struct{})

	var walk func(name string, stack []string)
	walk = func(name string, stack []string) {
		switch state[name] {
		case done:
			return
		case visiting:
			idx := 0
			for i := range stack {
				if stack[i] == name {
					idx = i
					break
				}
			}
			cycle := append([]string(nil), stack[idx:]...)
			key := canonicalCycle(cycle)
			if _, seen := reported[key]; seen {
				return
			}
			reported[key] = struct{}{}
			r.errs = append(r.errs, &pipeline.ValidationError{
				Code: pipeline.CodeCyclicDependency,
				Path: append(cycle, name),
			})
			return
		}

		state[name] = visiting
		stack = append(stack, name)
		if a, ok := r.rg.byName[name]; ok {
			for _, dep := range a.Direct {
				walk(dep, stack)
			}
		}
		state[name] = done
	}

	for _, a := range r.rg.Actions {
		walk(a.Name(), nil)
	}
}

// canonicalCycle rotates a cycle so that its smallest member comes first.
func canonicalCycle(cycle []string) string {
	minIdx := 0
	for i := range cycle {
		if cycle[i] < cycle[minIdx] {
			minIdx = i
		}
	}
	rotated := append(append([]string(nil), cycle[minIdx:]...), cycle[:minIdx]...)
	return strings.Join(rotated, "\x00")
}

func (r *resolution) computeUpstream() {
	memo := make(map[string]map[string]struct{}, len(r.rg.Actions))

	var closure func(name string) map[string]struct{}
	closure = func(name string) map[string]struct{} {
		if set, ok := memo[name]; ok {
			return set
		}
		set := make(map[string]struct{})
		if a, ok := r.rg.byName[name]; ok {
			for _, dep := range a.Direct {
				set[dep] = struct{}{}
				for up := range closure(dep) {
					set[up] = struct{}{}
				}
			}
		}
		memo[name] = set
		return set
	}

	for _, a := range r.rg.Actions {
		set := closure(a.Name())
		a.Upstream = make([]string, 0, len(set))
		for up := range set {
			a.Upstream = append(a.Upstream, up)
		}
		r.sortByOrder(a.Upstream)
	}
}

func (r *resolution) assignLocations(locate Locator) {
	owner := make(map[string]string, len(r.artifacts))
	for _, id := range r.artifacts {
		loc := locate(r.rg.Pipeline, id)
		if other, taken := owner[loc]; taken {
			r.errs = append(r.errs, &pipeline.ValidationError{
				Code:       pipeline.CodeLocationCollision,
				ArtifactID: id,
				Detail:     fmt.Sprintf("location '%s' already assigned to artifact '%s'", loc, other),
			})
			continue
		}
		owner[loc] = id
		r.rg.Locations[id] = loc
	}
}

func (r *resolution) sortByOrder(names []string) {
	sort.SliceStable(names, func(i, j int) bool { return r.order[names[i]] < r.order[names[j]] })
}
