// Package yamlconfig loads pipeline definitions from YAML files.
//
// A document is either a single pipeline (name, stages) or a list of them
// under a top-level `pipelines` key. A file may hold several documents
// separated by `---`. Unknown keys are rejected.
package yamlconfig

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/specialistvlad/stageplan/internal/config"
	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/pipeline"
	"gopkg.in/yaml.v3"
)

type document struct {
	Pipelines []pipelineDoc `yaml:"pipelines"`
	// Inline single-pipeline form.
	Name   string     `yaml:"name"`
	Stages []stageDoc `yaml:"stages"`
}

type pipelineDoc struct {
	Name   string     `yaml:"name"`
	Stages []stageDoc `yaml:"stages"`
}

type stageDoc struct {
	Name    string      `yaml:"name"`
	Actions []actionDoc `yaml:"actions"`
}

type actionDoc struct {
	Name    string            `yaml:"name"`
	Kind    string            `yaml:"kind"`
	Uses    string            `yaml:"uses"`
	Inputs  []string          `yaml:"inputs"`
	Outputs []string          `yaml:"outputs"`
	Config  map[string]any    `yaml:"config"`
	Secrets map[string]string `yaml:"secrets"`
}

// Loader is the YAML-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context, files ...string) ([]*pipeline.Definition, error) {
	logger := ctxlog.FromContext(ctx)

	var defs []*pipeline.Definition
	for _, file := range files {
		fileDefs, err := l.loadFile(ctx, file)
		if err != nil {
			return nil, err
		}
		logger.Debug("YAML: Loaded file.", "file", file, "pipeline_count", len(fileDefs))
		defs = append(defs, fileDefs...)
	}
	return defs, nil
}

func (l *Loader) loadFile(ctx context.Context, file string) ([]*pipeline.Definition, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("open YAML file %s: %w", file, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var defs []*pipeline.Definition
	for {
		var doc document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode YAML file %s: %w", file, err)
		}

		docs := doc.Pipelines
		if doc.Name != "" || len(doc.Stages) > 0 {
			if len(docs) > 0 {
				return nil, fmt.Errorf("YAML file %s mixes an inline pipeline with a 'pipelines' list", file)
			}
			docs = []pipelineDoc{{Name: doc.Name, Stages: doc.Stages}}
		}
		for _, pd := range docs {
			def := translate(ctx, pd)
			def.SourceFile = file
			defs = append(defs, def)
		}
	}
	return defs, nil
}

func translate(ctx context.Context, pd pipelineDoc) *pipeline.Definition {
	logger := ctxlog.FromContext(ctx)
	def := &pipeline.Definition{Name: pd.Name}
	for _, sd := range pd.Stages {
		stage := pipeline.Stage{Name: sd.Name}
		for _, ad := range sd.Actions {
			kind, err := pipeline.ParseKind(ad.Kind)
			if err != nil {
				logger.Warn("YAML: Unknown action kind.", "action", ad.Name, "kind", ad.Kind)
			}
			stage.Actions = append(stage.Actions, pipeline.Action{
				Name:    ad.Name,
				Kind:    kind,
				Uses:    ad.Uses,
				Inputs:  pipeline.Refs(ad.Inputs...),
				Outputs: pipeline.Refs(ad.Outputs...),
				Config:  ad.Config,
				Secrets: ad.Secrets,
			})
		}
		def.Stages = append(def.Stages, stage)
	}
	return def
}
