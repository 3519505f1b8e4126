package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineLoader declares one pipeline per non-empty line of a file.
type lineLoader struct{}

func (lineLoader) Load(_ context.Context, files ...string) ([]*pipeline.Definition, error) {
	var defs []*pipeline.Definition
	for _, f := range files {
		body, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
			if line != "" {
				defs = append(defs, &pipeline.Definition{Name: line, SourceFile: f})
			}
		}
	}
	return defs, nil
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func names(defs []*pipeline.Definition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Name)
	}
	return out
}

func TestMultiLoader_DiscoversByExtension(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.pl"), "api\n")
	writeFile(t, filepath.Join(dir, "nested", "a.PL"), "site\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored\n")

	m := NewMultiLoader().Register(".pl", lineLoader{}).Register(".PL", lineLoader{})
	assert.Equal(t, []string{".pl"}, m.Extensions())

	defs, err := m.Load(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "site"}, names(defs), "directory search ignores extension case")

	defs, err = m.Load(ctx, filepath.Join(dir, "nested", "a.PL"), filepath.Join(dir, "b.pl"))
	require.NoError(t, err)
	assert.Equal(t, []string{"site", "api"}, names(defs))
}

func TestMultiLoader_Errors(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "one.pl"), "site\n")
	writeFile(t, filepath.Join(dir, "two.pl"), "site\n")
	writeFile(t, filepath.Join(dir, "empty", "e.pl"), "\n")
	writeFile(t, filepath.Join(dir, "x.txt"), "")

	m := NewMultiLoader().Register(".pl", lineLoader{})

	_, err := m.Load(ctx, dir)
	assert.ErrorContains(t, err, "pipeline 'site' declared in both")

	_, err = m.Load(ctx, filepath.Join(dir, "empty"))
	assert.ErrorIs(t, err, ErrNoPipelines)

	_, err = m.Load(ctx, filepath.Join(dir, "missing"))
	assert.ErrorContains(t, err, "error accessing path")

	_, err = m.Load(ctx, filepath.Join(dir, "x.txt"))
	assert.ErrorContains(t, err, "unsupported configuration file")
}

func TestMultiLoader_DeduplicatesFiles(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir := t.TempDir()
	file := filepath.Join(dir, "one.pl")
	writeFile(t, file, "site\n")

	defs, err := NewMultiLoader().Register(".pl", lineLoader{}).Load(ctx, file, dir)
	require.NoError(t, err)
	assert.Len(t, defs, 1)
}

func TestSelect(t *testing.T) {
	defs := []*pipeline.Definition{{Name: "site"}, {Name: "api"}, {Name: "docs"}}

	all, err := Select(defs, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	picked, err := Select(defs, []string{"docs", "site"})
	require.NoError(t, err)
	assert.Equal(t, []string{"docs", "site"}, names(picked))

	_, err = Select(defs, []string{"site", "nope", "nada"})
	assert.EqualError(t, err, "unknown pipeline(s): nope, nada")
}
