package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/specialistvlad/stageplan/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, exit, err := Parse([]string{
		"-p", "a.hcl",
		"-pipeline", "b.yaml,c.yml",
		"-select", "site, docs",
		"-mode", "RUN",
		"-output", "json",
		"-log-level", "debug",
		"-workers", "4",
		"-timeout", "90s",
		"-state", "runs.db",
		"-aws-region", "eu-west-1",
		"dir",
	}, out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, []string{"a.hcl", "b.yaml", "c.yml", "dir"}, cfg.PipelinePaths)
	assert.Equal(t, []string{"site", "docs"}, cfg.Select)
	assert.Equal(t, app.ModeRun, cfg.Mode)
	assert.Equal(t, app.OutputJSON, cfg.Output)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 90*time.Second, cfg.DefaultTimeout)
	assert.Equal(t, "runs.db", cfg.StatePath)
	assert.Equal(t, "eu-west-1", cfg.AWSRegion)
}

func TestParse_Defaults(t *testing.T) {
	cfg, _, err := Parse([]string{"pipelines"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, app.ModePlan, cfg.Mode)
	assert.Equal(t, app.OutputText, cfg.Output)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, app.DefaultWorkers, cfg.Workers)
	assert.Equal(t, ".", cfg.Workspace)
}

func TestParse_NoPathPrintsUsage(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, exit, err := Parse(nil, out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown flag", args: []string{"-nope"}, wantErr: "flag provided but not defined: -nope"},
		{name: "bad log format", args: []string{"-log-format", "xml", "p"}, wantErr: "invalid log-format"},
		{name: "bad mode", args: []string{"-mode", "apply", "p"}, wantErr: "invalid mode 'apply'"},
		{name: "bad log level", args: []string{"-log-level", "loud", "p"}, wantErr: "invalid log level 'loud'"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse(tc.args, &bytes.Buffer{})
			require.Error(t, err)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantErr)
		})
	}
}
