package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/repositories"
	"github.com/desertthunder/groupchat/internal/services"
	"github.com/desertthunder/groupchat/internal/shared"
	"github.com/desertthunder/groupchat/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database and Spotify service are opened on first use, so commands that need neither (setup config,
// chat extract) work without credentials.
type Runner struct {
	config     *shared.Config
	configPath string
	resolved   bool
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader

	db      *shared.DB
	store   *repositories.Store
	spotify *services.SpotifyService
	engine  *tasks.ChatEngine
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A non-nil Config is used as is; otherwise [Runner.Before] resolves it from the --config flag and the
// environment. Store and Spotify are injected by tests.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
	Store      *repositories.Store
	Spotify    *services.SpotifyService
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	resolved := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = services.NewHTTPClient(opts.Config.HTTP.Timeout())
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		resolved:   resolved,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
		store:      opts.Store,
		spotify:    opts.Spotify,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, spotifyCommand, playlistCommand, chatCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before resolves the configuration from the --config flag and GROUPCHAT_* environment variables.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if r.resolved {
		return ctx, nil
	}

	r.configPath = cmd.String("config")
	config, err := shared.ResolveConfig(r.configPath)
	if err != nil {
		return ctx, err
	}
	r.config = config
	r.httpClient = services.NewHTTPClient(config.HTTP.Timeout())
	r.resolved = true

	r.logger.Debug("resolved config", "path", r.configPath, "database", config.Database.Driver)
	return ctx, nil
}

// SetLogger replaces the runner's logger, e.g. to keep logs off the screen while the TUI runs.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// openStore opens the configured database, runs pending migrations, and creates the store.
func (r *Runner) openStore() (*repositories.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Driver, r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if applied, err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	} else if len(applied) > 0 {
		r.logger.Info("applied migrations", "versions", applied)
	}

	r.db = db
	r.store = repositories.NewStore(db)
	return r.store, nil
}

// openSpotify opens the store and creates the Spotify service and chat engine.
func (r *Runner) openSpotify() (*services.SpotifyService, error) {
	store, err := r.openStore()
	if err != nil {
		return nil, err
	}

	if r.spotify == nil {
		if err := r.config.Credentials.Spotify.Validate(); err != nil {
			return nil, err
		}
		srv, err := services.NewSpotifyService(r.config.Credentials.Spotify.Map(), store, r.httpClient, r.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Spotify service: %w", err)
		}
		r.spotify = srv
	}

	if r.engine == nil {
		r.engine = tasks.NewChatEngine(r.spotify, store, r.config.Chat.BatchSize, shared.WithLogger(r.logger, "component", "chat"))
	}

	return r.spotify, nil
}

// Close releases the database opened by the runner.
func (r *Runner) Close() {
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			r.logger.Warn("failed to close database", "error", err)
		}
		r.db = nil
	}
}

// resolveUser returns the stored user with email. An empty email selects the only connected user.
func (r *Runner) resolveUser(email string) (*models.User, error) {
	store, err := r.openStore()
	if err != nil {
		return nil, err
	}

	if email != "" {
		user, err := store.FindUserByEmail(email)
		if err != nil {
			return nil, fmt.Errorf("%w: run 'groupchat spotify login' first", err)
		}
		return user, nil
	}

	users, err := store.Users.List(map[string]any{})
	if err != nil {
		return nil, err
	}
	switch len(users) {
	case 0:
		return nil, fmt.Errorf("%w: no connected users, run 'groupchat spotify login' first", shared.ErrNotConnected)
	case 1:
		return users[0], nil
	default:
		return nil, fmt.Errorf("%w: %d users are connected, pass --email", shared.ErrMissingArgument, len(users))
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
