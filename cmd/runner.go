package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsort/internal/repositories"
	"github.com/desertthunder/ytsort/internal/services"
	"github.com/desertthunder/ytsort/internal/shared"
	"github.com/desertthunder/ytsort/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	factory    services.ClientFactory
	tokens     *services.TokenProvider
	jobs       tasks.JobStore
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	engine     *tasks.PlaylistEngine
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Factory, Tokens and Jobs are normally built by [Runner.Before] from the config file; tests inject them.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Factory    services.ClientFactory
	Tokens     *services.TokenProvider
	Jobs       tasks.JobStore
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		factory:    opts.Factory,
		tokens:     opts.Tokens,
		jobs:       opts.Jobs,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	r.buildEngine()
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, itemsCommand, sortCommand, exportCommand, jobsCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the config file named by --config and builds the API clients before any command runs.
//
// A missing config file is not an error: defaults plus YOUTUBE_API_KEY are enough for listing.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	config, err := shared.LoadConfig(r.configPath)
	switch {
	case err == nil:
		r.config = config
	case errors.Is(err, fs.ErrNotExist):
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	default:
		return ctx, err
	}
	r.config.ApplyEnv()

	level := r.config.Log.Level
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))

	if r.tokens == nil && r.config.Credentials.YouTube.HasClient() {
		conf, err := services.NewOAuthConfig(r.config.Credentials.YouTube)
		if err != nil {
			return ctx, err
		}
		r.tokens = services.NewTokenProvider(conf, r.config.Credentials.YouTube.Token(), r.saveTokens).WithHTTPClient(r.httpClient)
	}
	if r.factory == nil {
		r.factory = services.NewFactory(r.config, r.logger)
	}
	if f, ok := r.factory.(*services.Factory); ok && f.Credentials == nil && r.tokens != nil {
		f.Credentials = r.tokens
	}

	r.buildEngine()
	return ctx, nil
}

// After closes the job database when a command opened it.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// buildEngine wires the engine from the runner's current collaborators.
//
// Nil pointers are kept out of the interfaces so the engine can tell "not configured" apart.
func (r *Runner) buildEngine() {
	opts := tasks.EngineOpts{
		Factory:  r.factory,
		Jobs:     r.jobs,
		Pipeline: r.config.Pipeline,
		Logger:   r.logger,
	}
	if r.tokens != nil {
		opts.Credentials = r.tokens
	}
	r.engine = tasks.NewPlaylistEngine(opts)
}

// openJobs opens the job database, runs pending migrations and rebuilds the engine with the job store.
func (r *Runner) openJobs(ctx context.Context) error {
	if r.jobs != nil {
		return nil
	}

	db, err := shared.OpenDatabase(ctx, r.config.Database)
	if err != nil {
		return err
	}
	r.db = db
	r.jobs = repositories.NewJobRepository(db)
	r.buildEngine()
	return nil
}

// jobRepository returns the SQL job store, opening it when needed.
func (r *Runner) jobRepository(ctx context.Context) (*repositories.JobRepository, error) {
	if err := r.openJobs(ctx); err != nil {
		return nil, err
	}
	repo, ok := r.jobs.(*repositories.JobRepository)
	if !ok {
		return nil, fmt.Errorf("%w: job listing needs the database store", shared.ErrServiceUnavailable)
	}
	return repo, nil
}

// saveTokens stores tok in the config and writes the config file back when one is in use.
func (r *Runner) saveTokens(tok *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrInvalidConfig)
	}
	if err := r.config.Credentials.YouTube.Update(tok); err != nil {
		return fmt.Errorf("failed to update youtube configuration: %w", err)
	}
	if r.configPath == "" {
		return nil
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// SetLogger replaces the logger used by the runner and its engine.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	r.buildEngine()
}

// watch prints progress updates until the returned stop function is called.
// A quiet watch only logs them, which keeps stdout clean for data output.
func (r *Runner) watch(quiet bool) (chan<- tasks.ProgressUpdate, func()) {
	ch := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range ch {
			if quiet {
				r.logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
				continue
			}
			r.writePlain("%s\n", update.Message)
		}
	}()

	return ch, func() {
		close(ch)
		wg.Wait()
	}
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
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
