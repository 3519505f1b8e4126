package localsession

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/stageplan/internal/handlers"
	"github.com/specialistvlad/stageplan/internal/localexecutor"
	"github.com/specialistvlad/stageplan/internal/node"
	"github.com/specialistvlad/stageplan/internal/nodeid"
	"github.com/specialistvlad/stageplan/internal/sqlitestore"
	tu "github.com/specialistvlad/stageplan/internal/testutil"
	"github.com/specialistvlad/stageplan/internal/testutil/plantest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func markerHandlers() *handlers.Handlers {
	reg := handlers.New()
	reg.Register("print", handlers.HandlerFunc(func(_ context.Context, req *handlers.Request) (*handlers.Result, error) {
		for id, dir := range req.Outputs {
			if err := os.WriteFile(filepath.Join(dir, id), []byte("ok"), 0o644); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}))
	return reg
}

func TestSession_InMemoryRun(t *testing.T) {
	ctx, _ := tu.Context(t)
	plan := plantest.MustPlan(t, tu.ParallelBuilds())
	f := &SessionFactory{Options: localexecutor.Options{Workspace: t.TempDir()}}

	s, err := f.NewSession(ctx, plan, markerHandlers())
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())

	exec, err := s.GetExecutor()
	require.NoError(t, err)
	summary, err := exec.Execute(ctx, plan)
	require.NoError(t, err)
	assert.True(t, summary.Succeeded())
	assert.Equal(t, s.ID(), summary.RunID)

	status, err := s.(*Session).Store().GetStatus(ctx, nodeid.New("Deploy", "Release"))
	require.NoError(t, err)
	assert.Equal(t, node.StatusSucceeded, status)
	require.NoError(t, s.Close(ctx))
}

func TestSession_SQLiteRunHistory(t *testing.T) {
	ctx, _ := tu.Context(t)
	db, err := sqlitestore.Open(ctx, filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	plan := plantest.MustPlan(t, tu.ThreeStage())
	f := &SessionFactory{Options: localexecutor.Options{Workspace: t.TempDir()}, DB: db}

	s, err := f.NewSession(ctx, plan, markerHandlers())
	require.NoError(t, err)

	runs := sqlitestore.NewRunLog(db)
	run, err := runs.Get(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, node.StatusRunning, run.Status)
	assert.Equal(t, plan.Fingerprint, run.Fingerprint)

	exec, err := s.GetExecutor()
	require.NoError(t, err)
	_, err = exec.Execute(ctx, plan)
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx))

	run, err = runs.Get(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, node.StatusSucceeded, run.Status)
	assert.NotNil(t, run.FinishedAt)

	states, err := sqlitestore.New(db, s.ID()).States(ctx)
	require.NoError(t, err)
	assert.Len(t, states, 3)
}
