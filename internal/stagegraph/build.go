package stagegraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/inmemorytopology"
	"github.com/specialistvlad/stageplan/internal/node"
	"github.com/specialistvlad/stageplan/internal/nodeid"
	"github.com/specialistvlad/stageplan/internal/pipeline"
)

// producer records one declaration of an artifact output.
type producer struct {
	action     string
	stage      string
	stageIndex int
}

// builder holds the working state of a single Build call.
type builder struct {
	def  *pipeline.Definition
	errs pipeline.ValidationErrors

	// producers maps an artifact id to every action declaring it as output,
	// in declaration order.
	producers map[string][]producer
	// artifactOrder lists artifact ids in order of first declaration.
	artifactOrder []string
}

// Build validates def and constructs its stage graph. On failure the returned
// error is a pipeline.ValidationErrors holding every problem found.
func Build(ctx context.Context, def *pipeline.Definition) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	if def == nil {
		return nil, errors.New("cannot build graph from nil definition")
	}
	logger.Debug("Build: Starting graph construction.", "pipeline", def.Name, "stage_count", len(def.Stages))

	b := &builder{def: def, producers: make(map[string][]producer)}
	if len(def.Stages) == 0 {
		b.add(&pipeline.ValidationError{Code: pipeline.CodeEmptyPipeline, Detail: fmt.Sprintf("pipeline '%s'", def.Name)})
		return nil, b.errs
	}

	b.checkStructure()
	b.checkStageNames()
	b.checkActionNames()
	b.indexProducers()
	b.checkConsumers()
	b.checkProducers()

	if len(b.errs) > 0 {
		logger.Debug("Build: Validation failed.", "pipeline", def.Name, "error_count", len(b.errs))
		return nil, b.errs
	}
	logger.Debug("Build: Validation passed.", "pipeline", def.Name)

	g, err := b.assemble(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble stage graph: %w", err)
	}
	logger.Debug("Build: Graph construction successful.", "pipeline", def.Name, "node_count", len(g.nodes), "edge_count", g.edgeCount)
	return g, nil
}

func (b *builder) add(e *pipeline.ValidationError) {
	b.errs = append(b.errs, e)
}

// checkStructure validates names, kinds and the source-stage rule.
func (b *builder) checkStructure() {
	for si, stage := range b.def.Stages {
		if !nodeid.ValidName(stage.Name) {
			b.add(&pipeline.ValidationError{
				Code:   pipeline.CodeInvalidName,
				Stage:  stage.Name,
				Detail: fmt.Sprintf("stage #%d name %q must match [A-Za-z0-9_-]+", si+1, stage.Name),
			})
		}
		for _, a := range stage.Actions {
			if !nodeid.ValidName(a.Name) {
				b.add(&pipeline.ValidationError{
					Code:   pipeline.CodeInvalidName,
					Stage:  stage.Name,
					Action: a.Name,
					Detail: fmt.Sprintf("action name %q must match [A-Za-z0-9_-]+", a.Name),
				})
			}
			if !a.Kind.Valid() {
				b.add(&pipeline.ValidationError{Code: pipeline.CodeInvalidKind, Stage: stage.Name, Action: a.Name})
			}
			for _, ref := range append(append([]pipeline.ArtifactRef(nil), a.Inputs...), a.Outputs...) {
				if ref.ID == "" {
					b.add(&pipeline.ValidationError{
						Code:   pipeline.CodeInvalidName,
						Stage:  stage.Name,
						Action: a.Name,
						Detail: "artifact id must not be empty",
					})
				}
			}
			if si == 0 && (a.Kind != pipeline.KindSource || len(a.Inputs) > 0 || len(a.Outputs) == 0) {
				b.add(&pipeline.ValidationError{Code: pipeline.CodeInvalidSourceStage, Stage: stage.Name, Action: a.Name})
			}
		}
	}
	if len(b.def.Stages) > 0 && len(b.def.Stages[0].Actions) == 0 {
		b.add(&pipeline.ValidationError{Code: pipeline.CodeInvalidSourceStage, Stage: b.def.Stages[0].Name})
	}
}

func (b *builder) checkStageNames() {
	seen := make(map[string]int, len(b.def.Stages))
	for si, stage := range b.def.Stages {
		if first, ok := seen[stage.Name]; ok {
			b.add(&pipeline.ValidationError{
				Code:   pipeline.CodeDuplicateStageName,
				Stage:  stage.Name,
				Detail: fmt.Sprintf("stage #%d repeats the name of stage #%d", si+1, first+1),
			})
			continue
		}
		seen[stage.Name] = si
	}
}

func (b *builder) checkActionNames() {
	seen := make(map[string]string, b.def.ActionCount())
	for _, stage := range b.def.Stages {
		for _, a := range stage.Actions {
			if firstStage, ok := seen[a.Name]; ok {
				b.add(&pipeline.ValidationError{
					Code:   pipeline.CodeDuplicateActionName,
					Stage:  stage.Name,
					Action: a.Name,
					Detail: fmt.Sprintf("first declared in stage '%s'", firstStage),
				})
				continue
			}
			seen[a.Name] = stage.Name
		}
	}
}

func (b *builder) indexProducers() {
	for si, stage := range b.def.Stages {
		for _, a := range stage.Actions {
			for _, out := range pipeline.UniqueRefs(a.Outputs) {
				if out.ID == "" {
					continue
				}
				if _, ok := b.producers[out.ID]; !ok {
					b.artifactOrder = append(b.artifactOrder, out.ID)
				}
				b.producers[out.ID] = append(b.producers[out.ID], producer{action: a.Name, stage: stage.Name, stageIndex: si})
			}
		}
	}
}

// checkConsumers enforces that every input is produced by an earlier stage.
func (b *builder) checkConsumers() {
	for si, stage := range b.def.Stages {
		for _, a := range stage.Actions {
			for _, in := range pipeline.UniqueRefs(a.Inputs) {
				if in.ID == "" {
					continue
				}
				if _, ok := b.earlierProducer(in.ID, si); ok {
					continue
				}
				b.add(&pipeline.ValidationError{
					Code:       pipeline.CodeUnresolvedArtifact,
					Stage:      stage.Name,
					Action:     a.Name,
					ArtifactID: in.ID,
					Detail:     b.unresolvedDetail(in.ID, si),
				})
			}
		}
	}
}

func (b *builder) unresolvedDetail(id string, stageIndex int) string {
	for _, p := range b.producers[id] {
		if p.stageIndex == stageIndex {
			return fmt.Sprintf("produced by '%s' in the same stage; artifacts only cross stage boundaries", p.action)
		}
		if p.stageIndex > stageIndex {
			return fmt.Sprintf("produced by '%s' in later stage '%s'", p.action, p.stage)
		}
	}
	return ""
}

func (b *builder) checkProducers() {
	for _, id := range b.artifactOrder {
		ps := b.producers[id]
		if len(ps) < 2 {
			continue
		}
		names := make([]string, 0, len(ps))
		for _, p := range ps {
			names = append(names, p.action)
		}
		b.add(&pipeline.ValidationError{
			Code:       pipeline.CodeDuplicateArtifactProducer,
			ArtifactID: id,
			Producers:  names,
		})
	}
}

// earlierProducer returns the first producer of id declared in a stage
// before stageIndex.
func (b *builder) earlierProducer(id string, stageIndex int) (producer, bool) {
	for _, p := range b.producers[id] {
		if p.stageIndex < stageIndex {
			return p, true
		}
	}
	return producer{}, false
}

// assemble creates nodes and edges. It runs only on a valid definition.
func (b *builder) assemble(ctx context.Context) (*Graph, error) {
	g := &Graph{
		name:      b.def.Name,
		byName:    make(map[string]*node.Node, b.def.ActionCount()),
		topology:  inmemorytopology.New(),
	}

	order := 0
	for si, stage := range b.def.Stages {
		g.stages = append(g.stages, stage.Name)
		for _, a := range stage.Actions {
			a.Inputs = pipeline.UniqueRefs(a.Inputs)
			a.Outputs = pipeline.UniqueRefs(a.Outputs)
			n := node.New(stage.Name, si, order, a)
			order++
			if err := g.topology.AddNode(ctx, n); err != nil {
				return nil, err
			}
			g.nodes = append(g.nodes, n)
			g.byName[a.Name] = n
		}
	}
	for _, consumer := range g.nodes {
		for _, in := range consumer.Action.Inputs {
			p, _ := b.earlierProducer(in.ID, consumer.StageIndex)
			from := g.byName[p.action]
			if err := g.topology.AddDependency(ctx, from.ID, consumer.ID); err != nil {
				return nil, err
			}
			g.edgeCount++
		}
	}
	return g, nil
}
