package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixsync/internal/formatter"
	"github.com/desertthunder/mixsync/internal/rules"
	"github.com/desertthunder/mixsync/internal/services"
	"github.com/desertthunder/mixsync/internal/shared"
	"github.com/desertthunder/mixsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Config, catalog, registry and engine are built on first use so that setup works without any of them.
type Runner struct {
	config     *shared.Config
	configPath string
	verbose    bool
	catalog    services.Catalog
	registry   *rules.Registry
	engine     tasks.SyncEngine
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Catalog
	Registry   *rules.Registry
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		registry:   opts.Registry,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, syncCommand, planCommand, rulesCommand, playlistsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before applies the global flags.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	r.verbose = cmd.Bool("verbose")
	if r.verbose {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// loadConfig reads the config file once. A missing file points the user at setup.
func (r *Runner) loadConfig() (*shared.Config, error) {
	if r.config != nil {
		return r.config, nil
	}

	if _, err := os.Stat(r.configPath); err != nil {
		return nil, fmt.Errorf("%w: %s not found, run 'mixsync setup' first", shared.ErrMissingConfig, r.configPath)
	}

	config, err := shared.LoadConfig(r.configPath)
	if err != nil {
		return nil, err
	}
	if !r.verbose {
		shared.SetLogLevel(r.logger, shared.ParseLogLevel(config.Log.Level))
	}

	r.logger.Debug("config loaded", "path", r.configPath)
	r.config = config
	return config, nil
}

// resolvePath makes a path from the config file relative to the config file's directory.
func (r *Runner) resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) || r.configPath == "" {
		return path
	}
	return filepath.Join(filepath.Dir(r.configPath), path)
}

func (r *Runner) catalogService() (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	config, err := r.loadConfig()
	if err != nil {
		return nil, err
	}

	creds, err := shared.LoadCredentials(r.resolvePath(config.Credentials.Path))
	if err != nil {
		return nil, err
	}

	svc, err := services.NewSpotifyService(creds.Map(), services.SpotifyOpts{
		BaseURL:    config.Catalog.BaseURL,
		HTTPClient: r.httpClient,
		RateLimit:  config.Catalog.RateLimit,
		PageSize:   config.Catalog.PageSize,
		Timeout:    config.Catalog.Timeout.Duration,
		Logger:     shared.WithLogger(r.logger, "component", "catalog"),
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("catalog ready", "service", svc.Name(), "base_url", config.Catalog.BaseURL)
	r.catalog = svc
	return svc, nil
}

func (r *Runner) definitions() ([]rules.Definition, error) {
	if r.registry != nil {
		return r.registry.Definitions(), nil
	}

	config, err := r.loadConfig()
	if err != nil {
		return nil, err
	}
	return rules.LoadDefinitions(r.resolvePath(config.Rules.Path))
}

func (r *Runner) ruleRegistry() (*rules.Registry, error) {
	if r.registry != nil {
		return r.registry, nil
	}

	defs, err := r.definitions()
	if err != nil {
		return nil, err
	}
	catalog, err := r.catalogService()
	if err != nil {
		return nil, err
	}

	registry, err := rules.NewRegistry(defs, catalog, rules.RegistryOpts{
		Logger: shared.WithLogger(r.logger, "component", "rules"),
	})
	if err != nil {
		return nil, err
	}

	r.registry = registry
	return registry, nil
}

func (r *Runner) syncEngine() (tasks.SyncEngine, error) {
	if r.engine != nil {
		return r.engine, nil
	}

	registry, err := r.ruleRegistry()
	if err != nil {
		return nil, err
	}
	catalog, err := r.catalogService()
	if err != nil {
		return nil, err
	}

	batchSize := shared.MaxBatchSize
	if r.config != nil {
		batchSize = r.config.Catalog.BatchSize
	}

	r.engine = tasks.NewPlaylistEngine(catalog, registry, tasks.EngineOpts{
		BatchSize: batchSize,
		Logger:    shared.WithLogger(r.logger, "component", "sync"),
	})
	return r.engine, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", formatter.Styles.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
