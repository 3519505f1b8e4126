package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/specialistvlad/stageplan/internal/secrets"
	"github.com/specialistvlad/stageplan/internal/testutil"
	"github.com/stretchr/testify/require"
)

// SetupAppTest creates a new app instance for system testing. Output and logs
// are captured separately. AWS configuration is never loaded from the
// environment and secrets resolve from an empty static set unless opts say
// otherwise.
func SetupAppTest(t *testing.T, cfg Config, opts ...Option) (*App, *bytes.Buffer, *testutil.SafeBuffer) {
	t.Helper()

	if cfg.Workspace == "" {
		cfg.Workspace = t.TempDir()
	}
	cfg.LogLevel = "debug"
	config, err := NewConfig(cfg)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	logs := &testutil.SafeBuffer{}
	defaults := []Option{
		WithLogWriter(logs),
		WithAWSConfig(aws.Config{Region: "us-east-1"}),
		WithSecrets(secrets.NewRouter().Handle("static", secrets.Static{})),
	}
	testApp, err := NewApp(context.Background(), out, config, append(defaults, opts...)...)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = testApp.Close()
		if os.Getenv(testutil.LogsEnv) == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return testApp, out, logs
}

// WritePipelineFile writes body to name inside a fresh temporary directory and
// returns its path.
func WritePipelineFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
