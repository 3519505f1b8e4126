package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/node"
	"github.com/specialistvlad/stageplan/internal/pipeline"
	"github.com/specialistvlad/stageplan/internal/stagegraph"
	tu "github.com/specialistvlad/stageplan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() context.Context {
	return ctxlog.Discard(context.Background())
}

func buildAndResolve(t *testing.T, def *pipeline.Definition, opts ...Option) *ResolvedGraph {
	t.Helper()
	g, err := stagegraph.Build(testContext(), def)
	require.NoError(t, err)
	rg, err := Resolve(testContext(), g, opts...)
	require.NoError(t, err)
	return rg
}

// fakeGraph derives edges from artifacts without any stage rule, which lets
// tests construct cyclic graphs.
type fakeGraph struct {
	name  string
	nodes []*node.Node
}

func newFakeGraph(actions ...pipeline.Action) *fakeGraph {
	g := &fakeGraph{name: "fake"}
	for i, a := range actions {
		g.nodes = append(g.nodes, node.New("Any", 0, i, a))
	}
	return g
}

func (g *fakeGraph) Name() string          { return g.name }
func (g *fakeGraph) Actions() []*node.Node { return g.nodes }

func (g *fakeGraph) DependenciesOf(_ context.Context, action string) ([]*node.Node, error) {
	consumer := g.find(action)
	if consumer == nil {
		return nil, fmt.Errorf("unknown action %s", action)
	}
	var out []*node.Node
	for _, n := range g.nodes {
		if produces(n, consumer) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (g *fakeGraph) DependentsOf(_ context.Context, action string) ([]*node.Node, error) {
	producer := g.find(action)
	if producer == nil {
		return nil, fmt.Errorf("unknown action %s", action)
	}
	var out []*node.Node
	for _, n := range g.nodes {
		if produces(producer, n) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (g *fakeGraph) find(name string) *node.Node {
	for _, n := range g.nodes {
		if n.Name() == name {
			return n
		}
	}
	return nil
}

func produces(producer, consumer *node.Node) bool {
	for _, out := range producer.Action.Outputs {
		for _, in := range consumer.Action.Inputs {
			if out.ID == in.ID {
				return true
			}
		}
	}
	return false
}

func TestResolve_AnnotatesProducers(t *testing.T) {
	rg := buildAndResolve(t, tu.ThreeStage())

	compile, ok := rg.Action("Compile")
	require.True(t, ok)
	assert.Equal(t, []pipeline.ArtifactRef{{ID: "src", ProducedBy: "Get"}}, compile.Inputs)
	assert.Equal(t, []pipeline.ArtifactRef{{ID: "bin", ProducedBy: "Compile"}}, compile.Outputs)
	assert.Equal(t, []string{"Get"}, compile.Direct)
	assert.Equal(t, []string{"Push"}, compile.Downstream)
}

func TestResolve_UpstreamClosure(t *testing.T) {
	rg := buildAndResolve(t, tu.ParallelBuilds())

	release, ok := rg.Action("Release")
	require.True(t, ok)
	assert.Equal(t, []string{"Frontend", "Backend"}, release.Direct)
	assert.Equal(t, []string{"Get", "Frontend", "Backend"}, release.Upstream)

	get, _ := rg.Action("Get")
	assert.Empty(t, get.Upstream)
	assert.Equal(t, []string{"Frontend", "Backend"}, get.Downstream)

	frontend, _ := rg.Action("Frontend")
	assert.NotContains(t, frontend.Upstream, "Backend")
}

func TestResolve_LocationsAreUniqueAndDeterministic(t *testing.T) {
	first := buildAndResolve(t, tu.ParallelBuilds())
	second := buildAndResolve(t, tu.ParallelBuilds())

	assert.Equal(t, first.Locations, second.Locations)
	require.Len(t, first.Locations, 3)

	seen := map[string]string{}
	for id, loc := range first.Locations {
		assert.True(t, strings.HasPrefix(loc, "artifacts/parallel-builds/"+id+"-"), loc)
		other, dup := seen[loc]
		assert.False(t, dup, "location %s shared by %s and %s", loc, id, other)
		seen[loc] = id
	}

	loc, ok := first.Location("web")
	require.True(t, ok)
	assert.Equal(t, DefaultLocator("parallel-builds", "web"), loc)
}

func TestResolve_Idempotent(t *testing.T) {
	g, err := stagegraph.Build(testContext(), tu.ThreeStage())
	require.NoError(t, err)

	once, err := Resolve(testContext(), g)
	require.NoError(t, err)
	twice, err := Resolve(testContext(), g)
	require.NoError(t, err)
	assert.Equal(t, once.Locations, twice.Locations)
}

func TestResolve_CustomLocator(t *testing.T) {
	rg := buildAndResolve(t, tu.ThreeStage(), WithLocator(func(p, id string) string {
		return "s3://bucket/" + p + "/" + id
	}))

	loc, ok := rg.Location("bin")
	require.True(t, ok)
	assert.Equal(t, "s3://bucket/three-stage/bin", loc)
}

func TestResolve_LocationCollision(t *testing.T) {
	g, err := stagegraph.Build(testContext(), tu.ThreeStage())
	require.NoError(t, err)

	_, err = Resolve(testContext(), g, WithLocator(func(string, string) string { return "same" }))
	require.Error(t, err)
	assert.True(t, errors.Is(err, pipeline.ErrLocationCollision))
}

func TestResolve_DetectsCycles(t *testing.T) {
	g := newFakeGraph(
		pipeline.Action{Name: "A", Kind: pipeline.KindBuild, Inputs: pipeline.Refs("b"), Outputs: pipeline.Refs("a")},
		pipeline.Action{Name: "B", Kind: pipeline.KindBuild, Inputs: pipeline.Refs("a"), Outputs: pipeline.Refs("b")},
		pipeline.Action{Name: "C", Kind: pipeline.KindBuild, Inputs: pipeline.Refs("c"), Outputs: pipeline.Refs("c")},
	)

	rg, err := Resolve(testContext(), g)
	assert.Nil(t, rg)
	require.Error(t, err)

	var errs pipeline.ValidationErrors
	require.True(t, errors.As(err, &errs))
	var cycles []*pipeline.ValidationError
	for _, e := range errs {
		if e.Code == pipeline.CodeCyclicDependency {
			cycles = append(cycles, e)
		}
	}
	require.Len(t, cycles, 2)
	assert.Equal(t, []string{"A", "B", "A"}, cycles[0].Path)
	assert.Equal(t, []string{"C", "C"}, cycles[1].Path)
	assert.Contains(t, err.Error(), "A -> B -> A")
}

func TestResolve_ReportsUnresolvedAndDuplicateProducers(t *testing.T) {
	g := newFakeGraph(
		pipeline.Action{Name: "A", Kind: pipeline.KindSource, Outputs: pipeline.Refs("x")},
		pipeline.Action{Name: "B", Kind: pipeline.KindSource, Outputs: pipeline.Refs("x")},
		pipeline.Action{Name: "C", Kind: pipeline.KindBuild, Inputs: pipeline.Refs("y")},
	)

	_, err := Resolve(testContext(), g)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pipeline.ErrDuplicateArtifactProducer))
	assert.True(t, errors.Is(err, pipeline.ErrUnresolvedArtifact))
	assert.False(t, errors.Is(err, pipeline.ErrCyclicDependency))
}

func TestResolve_NilGraph(t *testing.T) {
	_, err := Resolve(testContext(), nil)
	assert.Error(t, err)
}

func TestDefaultLocator_Sanitises(t *testing.T) {
	a := DefaultLocator("site", "cdk/out")
	b := DefaultLocator("site", "cdk_out")

	assert.True(t, strings.HasPrefix(a, "artifacts/site/cdk_out-"))
	assert.True(t, strings.HasPrefix(b, "artifacts/site/cdk_out-"))
	assert.NotEqual(t, a, b)
}
