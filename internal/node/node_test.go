package node

import (
	"testing"

	"github.com/specialistvlad/stageplan/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CopiesAction(t *testing.T) {
	action := pipeline.Action{
		Name:    "Compile",
		Kind:    pipeline.KindBuild,
		Inputs:  pipeline.Refs("src"),
		Outputs: pipeline.Refs("bin"),
		Config:  map[string]any{"commands": []any{"make"}},
	}

	n := New("Build", 1, 3, action)
	action.Inputs[0].ID = "mutated"
	action.Config["extra"] = true

	assert.Equal(t, "Build.Compile", n.ID.String())
	assert.Equal(t, "Compile", n.Name())
	assert.Equal(t, "Build", n.Stage())
	assert.Equal(t, 1, n.StageIndex)
	assert.Equal(t, 3, n.Order)
	assert.Equal(t, "src", n.Action.Inputs[0].ID)
	assert.NotContains(t, n.Action.Config, "extra")
}

func TestStatus_RoundTrip(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusRunning, StatusSucceeded, StatusFailed, StatusCancelled, StatusSkipped} {
		t.Run(s.String(), func(t *testing.T) {
			parsed, err := ParseStatus(s.String())
			require.NoError(t, err)
			assert.Equal(t, s, parsed)
		})
	}

	_, err := ParseStatus("exploded")
	assert.Error(t, err)
	assert.Equal(t, "status(42)", Status(42).String())
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusSucceeded.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusSkipped.Terminal())
}
