package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/stageplan/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// listFlag collects a flag that may be repeated or given as a comma-separated list.
type listFlag []string

func (l *listFlag) String() string {
	return strings.Join(*l, ",")
}

func (l *listFlag) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("stageplan", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
stageplan - Compiles staged deployment pipelines into execution plans and runs them.

Usage:
  stageplan [options] [PIPELINE_PATH...]

Arguments:
  PIPELINE_PATH
    Path to a .hcl, .yaml or .yml file, or a directory containing them.

Options:
`)
		flagSet.PrintDefaults()
	}

	var paths, selected listFlag
	flagSet.Var(&paths, "pipeline", "Path to a pipeline file or directory. May be repeated.")
	flagSet.Var(&paths, "p", "Path to a pipeline file or directory (shorthand).")
	flagSet.Var(&selected, "select", "Comma-separated names of the pipelines to use. Default is all.")
	modeFlag := flagSet.String("mode", "plan", "What to do. Options: 'validate', 'plan' or 'run'.")
	outputFlag := flagSet.String("output", "text", "Result output format. Options: 'text' or 'json'.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", app.DefaultWorkers, "Number of actions of one wave running at the same time.")
	workspaceFlag := flagSet.String("workspace", ".", "Directory artifacts are stored in during a run.")
	timeoutFlag := flagSet.Duration("timeout", 0, "Default timeout of an action. 0 is no timeout.")
	stateFlag := flagSet.String("state", "", "Path of a SQLite database recording run history. Empty is disabled.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	awsRegionFlag := flagSet.String("aws-region", "", "AWS region for S3 deployments and Secrets Manager.")
	awsEndpointFlag := flagSet.String("aws-endpoint", "", "Custom AWS endpoint, e.g. for LocalStack.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	paths = append(paths, flagSet.Args()...)
	slog.Debug("Pipeline paths determined.", "paths", []string(paths))
	if len(paths) == 0 {
		slog.Debug("No pipeline path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	config, err := app.NewConfig(app.Config{
		PipelinePaths:   paths,
		Select:          selected,
		Mode:            app.Mode(strings.ToLower(*modeFlag)),
		Output:          app.OutputFormat(strings.ToLower(*outputFlag)),
		LogFormat:       logFormat,
		LogLevel:        *logLevelFlag,
		Workers:         *workersFlag,
		Workspace:       *workspaceFlag,
		DefaultTimeout:  *timeoutFlag,
		StatePath:       *stateFlag,
		HealthcheckPort: *healthPortFlag,
		AWSRegion:       *awsRegionFlag,
		AWSEndpoint:     *awsEndpointFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "mode", string(config.Mode))
	return config, false, nil
}
