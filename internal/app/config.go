package app

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Mode selects what the app does with the loaded pipelines.
type Mode string

const (
	// ModeValidate compiles every pipeline and reports problems only.
	ModeValidate Mode = "validate"
	// ModePlan compiles every pipeline and prints its execution plan.
	ModePlan Mode = "plan"
	// ModeRun compiles and executes every pipeline.
	ModeRun Mode = "run"
)

// OutputFormat selects how results are written to the output writer.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// DefaultWorkers is the executor concurrency used when none is configured.
const DefaultWorkers = 10

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// PipelinePaths are files or directories holding .hcl, .yaml or .yml
	// pipeline definitions.
	PipelinePaths []string
	// Select restricts the app to the named pipelines. Empty means all.
	Select []string

	Mode   Mode
	Output OutputFormat

	LogFormat string
	LogLevel  string

	Workers        int
	Workspace      string
	DefaultTimeout time.Duration
	// StatePath, when set, records runs in a SQLite database at that path.
	StatePath string

	HealthcheckPort int

	AWSRegion   string
	AWSEndpoint string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.PipelinePaths) == 0 {
		return nil, errors.New("PipelinePaths is a required configuration field and cannot be empty")
	}

	switch cfg.Mode {
	case "":
		cfg.Mode = ModePlan
	case ModeValidate, ModePlan, ModeRun:
	default:
		return nil, fmt.Errorf("invalid mode '%s': must be one of 'validate', 'plan', 'run'", cfg.Mode)
	}

	switch cfg.Output {
	case "":
		cfg.Output = OutputText
	case OutputText, OutputJSON:
	default:
		return nil, fmt.Errorf("invalid output '%s': must be 'text' or 'json'", cfg.Output)
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
		cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	default:
		return nil, fmt.Errorf("invalid log level '%s'", cfg.LogLevel)
	}

	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.DefaultTimeout < 0 {
		return nil, fmt.Errorf("default timeout must not be negative, got %s", cfg.DefaultTimeout)
	}
	if cfg.Workspace == "" {
		cfg.Workspace = "."
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}

	return &cfg, nil
}
