package executor

import (
	"errors"
	"testing"

	"github.com/specialistvlad/stageplan/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome_Err(t *testing.T) {
	assert.NoError(t, Succeeded("bin").Err("Compile"))

	err := Failed("exit status 1").Err("Compile")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExecution))
	assert.False(t, errors.Is(err, ErrCancelled))
	assert.Equal(t, "action 'Compile' EXECUTION_FAILED: exit status 1", err.Error())

	var execErr *ExecutionError
	require.True(t, errors.As(Cancelled("context canceled").Err("Push"), &execErr))
	assert.Equal(t, "Push", execErr.Action)
	assert.Equal(t, CodeCancelled, execErr.Code)

	assert.True(t, errors.Is(FailedWithCode(CodeTimeout, "deadline").Err("X"), ErrTimeout))
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "succeeded(a,b)", Succeeded("a", "b").String())
	assert.Equal(t, "failed(EXECUTION_FAILED: boom)", Failed("boom").String())
	assert.Equal(t, "cancelled(CANCELLED: stop)", Cancelled("stop").String())
	assert.Equal(t, "invalid", Outcome{}.String())
}

func TestSummary(t *testing.T) {
	var nilSummary *Summary
	assert.False(t, nilSummary.Succeeded())
	assert.True(t, (&Summary{Status: node.StatusSucceeded}).Succeeded())
	assert.False(t, (&Summary{Status: node.StatusFailed}).Succeeded())
}
