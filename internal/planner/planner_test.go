package planner

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/node"
	"github.com/specialistvlad/stageplan/internal/pipeline"
	"github.com/specialistvlad/stageplan/internal/resolver"
	"github.com/specialistvlad/stageplan/internal/stagegraph"
	tu "github.com/specialistvlad/stageplan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() context.Context {
	return ctxlog.Discard(context.Background())
}

func compile(t *testing.T, def *pipeline.Definition) *ExecutionPlan {
	t.Helper()
	ctx := testContext()
	g, err := stagegraph.Build(ctx, def)
	require.NoError(t, err)
	rg, err := resolver.Resolve(ctx, g)
	require.NoError(t, err)
	plan, err := Plan(ctx, rg)
	require.NoError(t, err)
	return plan
}

func TestPlan_Scenarios(t *testing.T) {
	testCases := []struct {
		name string
		def  *pipeline.Definition
		want [][]string
	}{
		{
			name: "source build deploy",
			def:  tu.ThreeStage(),
			want: [][]string{{"Get"}, {"Compile"}, {"Push"}},
		},
		{
			name: "parallel builds share a wave",
			def:  tu.ParallelBuilds(),
			want: [][]string{{"Get"}, {"Frontend", "Backend"}, {"Release"}},
		},
		{
			name: "single source stage",
			def: tu.Definition("sources",
				tu.Stage("Source", tu.Source("App", "app"), tu.Source("Infra", "infra"), tu.Source("Docs", "docs")),
			),
			want: [][]string{{"App", "Infra", "Docs"}},
		},
		{
			name: "later stage runs early without artifact edge",
			def: tu.Definition("soft-stages",
				tu.Stage("Source", tu.Source("Get", "src")),
				tu.Stage("Build", tu.Build("Compile", []string{"src"}, []string{"bin"})),
				tu.Stage("Deploy", tu.Deploy("Lint", "src"), tu.Deploy("Push", "bin")),
			),
			want: [][]string{{"Get"}, {"Compile", "Lint"}, {"Push"}},
		},
		{
			name: "declaration order breaks ties",
			def: tu.Definition("ties",
				tu.Stage("Source", tu.Source("Zeta", "z"), tu.Source("Alpha", "a")),
				tu.Stage("Build",
					tu.Build("Second", []string{"z"}, nil),
					tu.Build("First", []string{"a"}, nil),
				),
			),
			want: [][]string{{"Zeta", "Alpha"}, {"Second", "First"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			plan := compile(t, tc.def)
			assert.Equal(t, tc.want, plan.Names())
			for i, w := range plan.Waves {
				assert.Equal(t, i, w.Index)
			}
		})
	}
}

func TestPlan_ProducersPrecedeConsumers(t *testing.T) {
	defs := []*pipeline.Definition{
		tu.ThreeStage(),
		tu.ParallelBuilds(),
		tu.Definition("diamond",
			tu.Stage("Source", tu.Source("Get", "src"), tu.Source("Config", "cfg")),
			tu.Stage("Build", tu.Build("Compile", []string{"src"}, []string{"bin"}), tu.Build("Render", []string{"cfg"}, []string{"tpl"})),
			tu.Stage("Package", tu.Build("Bundle", []string{"bin", "tpl"}, []string{"pkg"})),
			tu.Stage("Deploy", tu.Deploy("Push", "pkg", "cfg")),
		),
	}

	for _, def := range defs {
		t.Run(def.Name, func(t *testing.T) {
			plan := compile(t, def)
			for _, w := range plan.Waves {
				for _, a := range w.Actions {
					for _, in := range a.Inputs {
						producerWave, ok := plan.WaveOf(in.ProducedBy)
						require.True(t, ok, "producer %s not planned", in.ProducedBy)
						assert.Less(t, producerWave, w.Index, "%s must run before %s", in.ProducedBy, a.Name)
					}
				}
			}
			assert.Equal(t, def.ActionCount(), plan.ActionCount())
		})
	}
}

func TestPlan_Deterministic(t *testing.T) {
	newDef := func() *pipeline.Definition {
		def := tu.ParallelBuilds()
		def.Stages[1].Actions[0].Config = map[string]any{
			"commands": []any{"npm install", "npm run build"},
			"env":      map[string]any{"B": "2", "A": "1"},
		}
		def.Stages[0].Actions[0].Secrets = map[string]string{"token": "env:GITHUB_TOKEN"}
		return def
	}

	first, err := compile(t, newDef()).JSON()
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := compile(t, newDef()).JSON()
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}

	plan := compile(t, newDef())
	assert.True(t, strings.HasPrefix(plan.Fingerprint, "blake3:"))
	assert.Equal(t, compile(t, newDef()).Fingerprint, plan.Fingerprint)
	assert.NotEqual(t, compile(t, tu.ThreeStage()).Fingerprint, plan.Fingerprint)
}

func TestPlan_Serialisation(t *testing.T) {
	plan := compile(t, tu.ThreeStage())
	body, err := plan.JSON()
	require.NoError(t, err)

	var decoded struct {
		Pipeline string `json:"pipeline"`
		Waves    []struct {
			Actions []struct {
				ActionName string `json:"actionName"`
				Kind       string `json:"kind"`
				Inputs     []struct {
					ID         string `json:"id"`
					ProducedBy string `json:"producedBy"`
					Location   string `json:"location"`
				} `json:"inputs"`
				Outputs []struct {
					ID string `json:"id"`
				} `json:"outputs"`
			} `json:"actions"`
		} `json:"waves"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))

	assert.Equal(t, "three-stage", decoded.Pipeline)
	require.Len(t, decoded.Waves, 3)
	compileAction := decoded.Waves[1].Actions[0]
	assert.Equal(t, "Compile", compileAction.ActionName)
	assert.Equal(t, "build", compileAction.Kind)
	require.Len(t, compileAction.Inputs, 1)
	assert.Equal(t, "src", compileAction.Inputs[0].ID)
	assert.Equal(t, "Get", compileAction.Inputs[0].ProducedBy)
	assert.NotEmpty(t, compileAction.Inputs[0].Location)
	assert.Equal(t, "bin", compileAction.Outputs[0].ID)

	push, ok := plan.Action("Push")
	require.True(t, ok)
	assert.Empty(t, push.OutputIDs())
	_, ok = plan.Action("Nope")
	assert.False(t, ok)
	_, ok = plan.WaveOf("Nope")
	assert.False(t, ok)
}

func TestPlan_ConfigIsCopied(t *testing.T) {
	def := tu.ThreeStage()
	def.Stages[1].Actions[0].Config = map[string]any{"commands": "make"}
	plan := compile(t, def)

	def.Stages[1].Actions[0].Config["commands"] = "rm -rf /"
	action, ok := plan.Action("Compile")
	require.True(t, ok)
	assert.Equal(t, "make", action.Config["commands"])
}

func TestPlan_Stalled(t *testing.T) {
	a := &resolver.Action{Node: node.New("S", 0, 0, pipeline.Action{Name: "A", Kind: pipeline.KindBuild}), Direct: []string{"B"}, Downstream: []string{"B"}}
	b := &resolver.Action{Node: node.New("S", 0, 1, pipeline.Action{Name: "B", Kind: pipeline.KindBuild}), Direct: []string{"A"}, Downstream: []string{"A"}}
	rg := &resolver.ResolvedGraph{Pipeline: "broken", Actions: []*resolver.Action{a, b}}

	_, err := Plan(testContext(), rg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStalled))

	_, err = Plan(testContext(), nil)
	assert.Error(t, err)
}
