// Package plantest compiles test fixtures into execution plans.
package plantest

import (
	"context"
	"testing"

	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/pipeline"
	"github.com/specialistvlad/stageplan/internal/planner"
	"github.com/specialistvlad/stageplan/internal/resolver"
	"github.com/specialistvlad/stageplan/internal/stagegraph"
	"github.com/stretchr/testify/require"
)

// MustPlan compiles def into an execution plan and fails the test on any
// validation error.
func MustPlan(t *testing.T, def *pipeline.Definition) *planner.ExecutionPlan {
	t.Helper()
	ctx := ctxlog.Discard(context.Background())

	g, err := stagegraph.Build(ctx, def)
	require.NoError(t, err)
	rg, err := resolver.Resolve(ctx, g)
	require.NoError(t, err)
	plan, err := planner.Plan(ctx, rg)
	require.NoError(t, err)
	return plan
}
