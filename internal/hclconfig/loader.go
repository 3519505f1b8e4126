package hclconfig

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/stageplan/internal/config"
	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/pipeline"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// fileRoot decodes the top-level blocks of a file.
type fileRoot struct {
	Locals    []*localsBlock   `hcl:"locals,block"`
	Pipelines []*pipelineBlock `hcl:"pipeline,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type localsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type pipelineBlock struct {
	Name   string        `hcl:"name,label"`
	Stages []*stageBlock `hcl:"stage,block"`
}

type stageBlock struct {
	Name    string         `hcl:"name,label"`
	Actions []*actionBlock `hcl:"action,block"`
}

type actionBlock struct {
	Name    string         `hcl:"name,label"`
	Kind    string         `hcl:"kind"`
	Uses    string         `hcl:"uses,optional"`
	Inputs  []string       `hcl:"inputs,optional"`
	Outputs []string       `hcl:"outputs,optional"`
	Config  hcl.Expression `hcl:"config,optional"`
	Secrets hcl.Expression `hcl:"secrets,optional"`
}

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context, files ...string) ([]*pipeline.Definition, error) {
	logger := ctxlog.FromContext(ctx)
	parser := hclparse.NewParser()

	var defs []*pipeline.Definition
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		fileDefs, err := l.decodeFile(ctx, hclFile.Body, file)
		if err != nil {
			return nil, err
		}
		logger.Debug("HCL: Loaded file.", "file", file, "pipeline_count", len(fileDefs))
		defs = append(defs, fileDefs...)
	}
	return defs, nil
}

func (l *Loader) decodeFile(ctx context.Context, body hcl.Body, file string) ([]*pipeline.Definition, error) {
	// Locals are decoded first so that pipeline blocks can reference them.
	var head struct {
		Locals []*localsBlock `hcl:"locals,block"`
		Remain hcl.Body       `hcl:",remain"`
	}
	if diags := gohcl.DecodeBody(body, nil, &head); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
	}
	evalCtx, err := newEvalContext(head.Locals)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate locals in %s: %w", file, err)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(body, evalCtx, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
	}

	defs := make([]*pipeline.Definition, 0, len(root.Pipelines))
	for _, pb := range root.Pipelines {
		def, err := l.translatePipeline(ctx, pb, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("pipeline '%s' in %s: %w", pb.Name, file, err)
		}
		def.SourceFile = file
		defs = append(defs, def)
	}
	return defs, nil
}

func (l *Loader) translatePipeline(ctx context.Context, pb *pipelineBlock, evalCtx *hcl.EvalContext) (*pipeline.Definition, error) {
	logger := ctxlog.FromContext(ctx)
	def := &pipeline.Definition{Name: pb.Name}

	for _, sb := range pb.Stages {
		stage := pipeline.Stage{Name: sb.Name}
		for _, ab := range sb.Actions {
			kind, err := pipeline.ParseKind(ab.Kind)
			if err != nil {
				// Left as KindUnknown; graph validation reports it with the
				// other findings.
				logger.Warn("HCL: Unknown action kind.", "action", ab.Name, "kind", ab.Kind)
			}

			cfg, err := evalMap(ab.Config, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("action '%s' config: %w", ab.Name, err)
			}
			sec, err := evalStringMap(ab.Secrets, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("action '%s' secrets: %w", ab.Name, err)
			}

			stage.Actions = append(stage.Actions, pipeline.Action{
				Name:    ab.Name,
				Kind:    kind,
				Uses:    ab.Uses,
				Inputs:  pipeline.Refs(ab.Inputs...),
				Outputs: pipeline.Refs(ab.Outputs...),
				Config:  cfg,
				Secrets: sec,
			})
		}
		def.Stages = append(def.Stages, stage)
	}
	return def, nil
}

// evalMap evaluates an object expression into native Go values. A missing
// attribute yields nil.
func evalMap(expr hcl.Expression, evalCtx *hcl.EvalContext) (map[string]any, error) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("must be an object, got %s", val.Type().FriendlyName())
	}
	native, err := ctyToNative(val)
	if err != nil {
		return nil, err
	}
	return native.(map[string]any), nil
}

func evalStringMap(expr hcl.Expression, evalCtx *hcl.EvalContext) (map[string]string, error) {
	m, err := evalMap(expr, evalCtx)
	if err != nil || m == nil {
		return nil, err
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("value of '%s' must be a string reference", k)
		}
		out[k] = s
	}
	return out, nil
}

// localsObject evaluates all locals blocks into one object value.
func localsObject(blocks []*localsBlock, evalCtx *hcl.EvalContext) (cty.Value, error) {
	vals := make(map[string]cty.Value)
	for _, b := range blocks {
		attrs, diags := b.Body.JustAttributes()
		if diags.HasErrors() {
			return cty.NilVal, diags
		}
		for name, attr := range attrs {
			if _, dup := vals[name]; dup {
				return cty.NilVal, fmt.Errorf("local '%s' is defined more than once", name)
			}
			v, diags := attr.Expr.Value(evalCtx)
			if diags.HasErrors() {
				return cty.NilVal, diags
			}
			vals[name] = v
		}
	}
	return cty.ObjectVal(vals), nil
}
