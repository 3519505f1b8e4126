package testutil

import "github.com/specialistvlad/stageplan/internal/pipeline"

// Source returns a source action producing the given artifacts.
func Source(name string, outputs ...string) pipeline.Action {
	return pipeline.Action{Name: name, Kind: pipeline.KindSource, Uses: "print", Outputs: pipeline.Refs(outputs...)}
}

// Build returns a build action.
func Build(name string, inputs, outputs []string) pipeline.Action {
	return pipeline.Action{
		Name:    name,
		Kind:    pipeline.KindBuild,
		Uses:    "print",
		Inputs:  pipeline.Refs(inputs...),
		Outputs: pipeline.Refs(outputs...),
	}
}

// Deploy returns a deploy action consuming the given artifacts.
func Deploy(name string, inputs ...string) pipeline.Action {
	return pipeline.Action{Name: name, Kind: pipeline.KindDeploy, Uses: "print", Inputs: pipeline.Refs(inputs...)}
}

// Stage groups actions into a stage.
func Stage(name string, actions ...pipeline.Action) pipeline.Stage {
	return pipeline.Stage{Name: name, Actions: actions}
}

// Definition assembles a pipeline definition.
func Definition(name string, stages ...pipeline.Stage) *pipeline.Definition {
	return &pipeline.Definition{Name: name, Stages: stages}
}

// ThreeStage is the canonical Source -> Build -> Deploy pipeline.
func ThreeStage() *pipeline.Definition {
	return Definition("three-stage",
		Stage("Source", Source("Get", "src")),
		Stage("Build", Build("Compile", []string{"src"}, []string{"bin"})),
		Stage("Deploy", Deploy("Push", "bin")),
	)
}

// ParallelBuilds has two independent builds fed by one source and a deploy
// consuming both of their outputs.
func ParallelBuilds() *pipeline.Definition {
	return Definition("parallel-builds",
		Stage("Source", Source("Get", "src")),
		Stage("Build",
			Build("Frontend", []string{"src"}, []string{"web"}),
			Build("Backend", []string{"src"}, []string{"api"}),
		),
		Stage("Deploy", Deploy("Release", "web", "api")),
	)
}
