package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/specialistvlad/stageplan/internal/planner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop() Handler {
	return HandlerFunc(func(ctx context.Context, req *Request) (*Result, error) {
		return &Result{}, nil
	})
}

func TestHandlers_RegisterAndLookup(t *testing.T) {
	h := New()
	h.Register("print", noop())
	h.Register("shell", noop())

	_, ok := h.Lookup("shell")
	assert.True(t, ok)
	_, ok = h.Lookup("")
	assert.True(t, ok, "empty name selects the default handler")
	_, ok = h.Lookup("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"print", "shell"}, h.Names())
}

func TestHandlers_DuplicatePanics(t *testing.T) {
	h := New()
	h.Register("shell", noop())
	assert.PanicsWithValue(t, "action handler with name 'shell' already registered", func() {
		h.Register("shell", noop())
	})
}

func TestHandlers_Validate(t *testing.T) {
	plan := &planner.ExecutionPlan{Waves: []planner.Wave{
		{Index: 0, Actions: []planner.PlannedAction{{Name: "Get", Uses: "gitsource"}}},
		{Index: 1, Actions: []planner.PlannedAction{{Name: "Build", Uses: "shel"}, {Name: "Note"}}},
	}}

	h := New()
	h.Register("gitsource", noop())

	err := h.Validate(plan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "action 'Build' uses unknown handler 'shel'")
	assert.Contains(t, err.Error(), "action 'Note' uses unknown handler 'print'")

	h.Register("shel", noop())
	h.Register("print", noop())
	assert.NoError(t, h.Validate(plan))
}

func TestRequest_ConfigAccessors(t *testing.T) {
	req := &Request{Action: planner.PlannedAction{
		Name: "Build",
		Config: map[string]any{
			"base_directory": "cdk.out",
			"commands":       []any{"npm install", "npm run build"},
			"single":         "make",
			"env":            map[string]any{"STAGE": "prod"},
			"bad":            42.0,
		},
	}}

	s, err := req.ConfigString("base_directory", "")
	require.NoError(t, err)
	assert.Equal(t, "cdk.out", s)

	s, err = req.ConfigString("absent", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", s)

	_, err = req.RequiredConfig("absent")
	assert.ErrorContains(t, err, "is required")

	_, err = req.ConfigString("bad", "")
	assert.ErrorContains(t, err, "must be a string")

	list, err := req.ConfigStrings("commands")
	require.NoError(t, err)
	assert.Equal(t, []string{"npm install", "npm run build"}, list)

	list, err = req.ConfigStrings("single")
	require.NoError(t, err)
	assert.Equal(t, []string{"make"}, list)

	m, err := req.ConfigStringMap("env")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"STAGE": "prod"}, m)

	_, err = req.ConfigStringMap("bad")
	assert.Error(t, err)
}

func TestDuration(t *testing.T) {
	cfg := map[string]any{"a": "90s", "b": 2.5, "c": true}

	d, err := Duration(cfg, "a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = Duration(cfg, "b", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, d)

	d, err = Duration(cfg, "missing", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)

	_, err = Duration(cfg, "c", time.Minute)
	assert.Error(t, err)
}

func TestRequest_FirstInputOutput(t *testing.T) {
	req := &Request{
		Action: planner.PlannedAction{
			Inputs:  []planner.ArtifactBinding{{ID: "src"}},
			Outputs: []planner.ArtifactBinding{{ID: "bin"}},
		},
		Inputs:  map[string]string{"src": "/ws/src"},
		Outputs: map[string]string{"bin": "/ws/bin"},
	}
	in, ok := req.FirstInput()
	assert.True(t, ok)
	assert.Equal(t, "/ws/src", in)
	out, ok := req.FirstOutput()
	assert.True(t, ok)
	assert.Equal(t, "/ws/bin", out)

	_, ok = (&Request{}).FirstInput()
	assert.False(t, ok)
}
