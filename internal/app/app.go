package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/specialistvlad/stageplan/internal/config"
	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/handlers"
	"github.com/specialistvlad/stageplan/internal/hclconfig"
	"github.com/specialistvlad/stageplan/internal/planner"
	"github.com/specialistvlad/stageplan/internal/secrets"
	"github.com/specialistvlad/stageplan/internal/sqlitestore"
	"github.com/specialistvlad/stageplan/internal/yamlconfig"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	loader   config.Loader
	handlers *handlers.Handlers
	secrets  secrets.Resolver
	db       *sql.DB

	mu    sync.RWMutex
	plans []*planner.ExecutionPlan

	httpServer *http.Server
}

// Option customizes NewApp.
type Option func(*options)

type options struct {
	modules   []handlers.Module
	secrets   secrets.Resolver
	awsConfig *aws.Config
	logW      io.Writer
}

// WithModules replaces the core action modules.
func WithModules(modules ...handlers.Module) Option {
	return func(o *options) { o.modules = modules }
}

// WithSecrets replaces the default env and AWS Secrets Manager resolvers.
func WithSecrets(r secrets.Resolver) Option {
	return func(o *options) { o.secrets = r }
}

// WithAWSConfig skips loading the shared AWS configuration.
func WithAWSConfig(cfg aws.Config) Option {
	return func(o *options) { o.awsConfig = &cfg }
}

// WithLogWriter sends logs to w instead of the output writer.
func WithLogWriter(w io.Writer) Option {
	return func(o *options) { o.logW = w }
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and handler registry.
func NewApp(ctx context.Context, outW io.Writer, cfg *Config, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	logW := o.logW
	if logW == nil {
		logW = outW
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("App: Logger configured.")

	var awsCfg aws.Config
	if o.awsConfig != nil {
		awsCfg = *o.awsConfig
	} else if o.modules == nil || o.secrets == nil {
		loaded, err := loadAWSConfig(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		awsCfg = loaded
	}

	modules := o.modules
	if modules == nil {
		modules = coreModules(awsCfg, cfg.AWSEndpoint)
	}
	reg := handlers.New()
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("App: Action modules registered.", "count", len(modules), "handlers", reg.Names())

	resolver := o.secrets
	if resolver == nil {
		resolver = secrets.NewRouter().
			Handle("env", secrets.NewEnv()).
			Handle("awssm", secrets.NewSecretsManagerFromConfig(awsCfg, cfg.AWSEndpoint))
	}

	a := &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		loader:   newLoader(),
		handlers: reg,
		secrets:  resolver,
	}

	if cfg.StatePath != "" {
		db, err := sqlitestore.Open(ctx, cfg.StatePath)
		if err != nil {
			return nil, err
		}
		a.db = db
		logger.Debug("App: Run state database opened.", "path", cfg.StatePath)
	}
	return a, nil
}

// newLoader returns the loader for every supported pipeline file format.
func newLoader() *config.MultiLoader {
	hcl := hclconfig.NewLoader()
	yml := yamlconfig.NewLoader()
	return config.NewMultiLoader().
		Register(".hcl", hcl).
		Register(".yaml", yml).
		Register(".yml", yml)
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return cfg, nil
}

// Handlers returns the application's handler registry. This is primarily for testing.
func (a *App) Handlers() *handlers.Handlers {
	return a.handlers
}

// Plans returns the plans compiled by the last Run.
func (a *App) Plans() []*planner.ExecutionPlan {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]*planner.ExecutionPlan(nil), a.plans...)
}

func (a *App) setPlans(plans []*planner.ExecutionPlan) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.plans = plans
}

// Close releases resources held by the app.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
