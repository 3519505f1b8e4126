package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/fsutil"
	"github.com/specialistvlad/stageplan/internal/pipeline"
)

// ErrNoPipelines is returned when the given paths declare no pipeline.
var ErrNoPipelines = errors.New("no pipeline definitions found")

// MultiLoader discovers configuration files and routes each one to the
// loader registered for its extension.
type MultiLoader struct {
	byExt map[string]Loader
}

// NewMultiLoader creates a loader without any format registered.
func NewMultiLoader() *MultiLoader {
	return &MultiLoader{byExt: make(map[string]Loader)}
}

// Register associates an extension such as ".hcl" with a loader.
func (m *MultiLoader) Register(ext string, l Loader) *MultiLoader {
	m.byExt[strings.ToLower(ext)] = l
	return m
}

// Extensions returns the registered extensions in sorted order.
func (m *MultiLoader) Extensions() []string {
	exts := make([]string, 0, len(m.byExt))
	for ext := range m.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load implements Loader. Paths may be files or directories; directories are
// searched recursively for every registered extension. Pipeline names must be
// unique across all files.
func (m *MultiLoader) Load(ctx context.Context, paths ...string) ([]*pipeline.Definition, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := m.discover(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Config: Discovered configuration files.", "count", len(files))

	var defs []*pipeline.Definition
	seen := make(map[string]string)
	for _, file := range files {
		loader := m.byExt[strings.ToLower(filepath.Ext(file))]
		loaded, err := loader.Load(ctx, file)
		if err != nil {
			return nil, err
		}
		for _, def := range loaded {
			if prev, dup := seen[def.Name]; dup {
				return nil, fmt.Errorf("pipeline '%s' declared in both %s and %s", def.Name, prev, def.SourceFile)
			}
			seen[def.Name] = def.SourceFile
			defs = append(defs, def)
		}
	}

	if len(defs) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoPipelines, strings.Join(paths, ", "))
	}
	logger.Info("Config: Pipelines loaded.", "pipeline_count", len(defs), "file_count", len(files))
	return defs, nil
}

// discover expands paths into a deduplicated, ordered list of files with a
// registered extension.
func (m *MultiLoader) discover(paths []string) ([]string, error) {
	if len(m.byExt) == 0 {
		return nil, errors.New("no configuration format registered")
	}
	var files []string
	seen := make(map[string]struct{})
	add := func(f string) {
		if _, ok := seen[f]; !ok {
			seen[f] = struct{}{}
			files = append(files, f)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			if _, ok := m.byExt[strings.ToLower(filepath.Ext(path))]; !ok {
				return nil, fmt.Errorf("unsupported configuration file %s: expected one of %s", path, strings.Join(m.Extensions(), ", "))
			}
			add(path)
			continue
		}

		found, err := fsutil.FindFilesByExtension(path, m.Extensions()...)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", path, err)
		}
		for _, f := range found {
			add(f)
		}
	}
	return files, nil
}

// Select returns the definitions named in names, in the given order. An empty
// selection returns every definition.
func Select(defs []*pipeline.Definition, names []string) ([]*pipeline.Definition, error) {
	if len(names) == 0 {
		return defs, nil
	}
	byName := make(map[string]*pipeline.Definition, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}

	out := make([]*pipeline.Definition, 0, len(names))
	var unknown []string
	for _, name := range names {
		d, ok := byName[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		out = append(out, d)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown pipeline(s): %s", strings.Join(unknown, ", "))
	}
	return out, nil
}
