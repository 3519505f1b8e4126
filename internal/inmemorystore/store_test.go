package inmemorystore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/specialistvlad/stageplan/internal/node"
	"github.com/specialistvlad/stageplan/internal/nodeid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetStatus(t *testing.T) {
	s := New()
	ctx := context.Background()
	addr := nodeid.MustParse("Build.Compile")

	status, err := s.GetStatus(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, node.StatusPending, status)

	require.NoError(t, s.SetStatus(ctx, addr, node.StatusRunning))

	status, err = s.GetStatus(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, node.StatusRunning, status)
}

func TestSetAndGetOutput(t *testing.T) {
	s := New()
	ctx := context.Background()
	addr := nodeid.MustParse("Build.Compile")

	output, err := s.GetOutput(ctx, addr)
	require.NoError(t, err)
	assert.Nil(t, output)

	expected := []string{"bin", "report"}
	require.NoError(t, s.SetOutput(ctx, addr, expected))
	expected[0] = "mutated"

	retrieved, err := s.GetOutput(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, []string{"bin", "report"}, retrieved)
}

func TestSetAndGetError(t *testing.T) {
	s := New()
	ctx := context.Background()
	addr := nodeid.MustParse("Deploy.Push")

	retrievedErr, err := s.GetError(ctx, addr)
	require.NoError(t, err)
	assert.Nil(t, retrievedErr)

	expectedErr := errors.New("bucket not found")
	require.NoError(t, s.SetError(ctx, addr, expectedErr))

	retrievedErr, err = s.GetError(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, expectedErr, retrievedErr)
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	numGoroutines := 100
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			addr := nodeid.New("Build", fmt.Sprintf("action-%d", i))

			assert.NoError(t, s.SetStatus(ctx, addr, node.StatusRunning))
			assert.NoError(t, s.SetOutput(ctx, addr, []string{fmt.Sprintf("out-%d", i)}))
			assert.NoError(t, s.SetStatus(ctx, addr, node.StatusSucceeded))

			status, err := s.GetStatus(ctx, addr)
			assert.NoError(t, err)
			assert.Equal(t, node.StatusSucceeded, status)
		}(i)
	}
	wg.Wait()
}
