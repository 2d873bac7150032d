package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/devonwallerson/amlibrary-plays/internal/cache"
	"github.com/devonwallerson/amlibrary-plays/internal/models"
	"github.com/devonwallerson/amlibrary-plays/internal/palette"
	"github.com/devonwallerson/amlibrary-plays/internal/repositories"
	"github.com/devonwallerson/amlibrary-plays/internal/services"
	"github.com/devonwallerson/amlibrary-plays/internal/session"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
	"github.com/devonwallerson/amlibrary-plays/internal/stats"
	"github.com/devonwallerson/amlibrary-plays/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Vendor-facing dependencies are built on first use so that commands like setup work without credentials.
type Runner struct {
	config     *shared.Config
	configPath string
	library    services.Library
	api        *services.APIService
	authorizer session.Authorizer
	manifest   *cache.Manifest
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	mu       sync.Mutex
	sessions *session.Provider
	db       *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	// Library replaces the Apple Music client; used by tests.
	Library services.Library
	API     *services.APIService
	// Authorizer replaces the browser sign-in flow.
	Authorizer session.Authorizer
	// Manifest replaces the sqlite-backed cache.
	Manifest   *cache.Manifest
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
	if opts.API == nil {
		opts.API = services.NewAPIService(opts.Config.API.ProxyURL, opts.HTTPClient)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		library:    opts.Library,
		api:        opts.API,
		authorizer: opts.Authorizer,
		manifest:   opts.Manifest,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, libraryCommand, statsCommand, recommendationsCommand,
		apiCommand, cacheCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger swaps the logger, e.g. for a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the cache database, if one was opened.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) sessionConfig() session.Config {
	return session.Config{
		DeveloperToken: r.config.Credentials.AppleMusic.DeveloperToken,
		UserToken:      r.config.Credentials.AppleMusic.UserToken,
		App:            session.Identity{Name: r.config.App.Name, Build: r.config.App.Build},
	}
}

// saveUserToken stores token in the config and, when the config came from a file, writes it back.
func (r *Runner) saveUserToken(token string) error {
	if r.config == nil {
		return fmt.Errorf("config is nil")
	}

	r.config.Credentials.AppleMusic.UserToken = token

	if r.configPath == "" {
		return nil
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// sessionProvider returns the runner's session provider, creating it on first use.
//
// Without a configured user token the provider signs in through the browser and persists the result.
func (r *Runner) sessionProvider() (*session.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions != nil {
		return r.sessions, nil
	}
	if err := r.config.Validate(); err != nil {
		return nil, err
	}

	auth := r.authorizer
	if auth == nil {
		auth = session.AuthorizerFunc(r.authorizeInBrowser)
	}

	r.sessions = session.NewProvider(r.sessionConfig(), session.PersistingAuthorizer{
		Authorizer: auth,
		Save:       r.saveUserToken,
		Logger:     r.logger,
	}, shared.WithLogger(r.logger, "component", "session"))
	return r.sessions, nil
}

// waitSession blocks until the user is signed in.
func (r *Runner) waitSession(ctx context.Context) (*session.Session, error) {
	provider, err := r.sessionProvider()
	if err != nil {
		return nil, err
	}
	return provider.Wait(ctx)
}

func (r *Runner) musicService(userToken string) (*services.MusicService, error) {
	cfg := r.config
	client := &http.Client{
		Transport: r.httpClient.Transport,
		Timeout:   time.Duration(cfg.API.TimeoutSeconds) * time.Second,
	}

	return services.NewMusicService(services.MusicOpts{
		BaseURL:           cfg.API.BaseURL,
		DeveloperToken:    cfg.Credentials.AppleMusic.DeveloperToken,
		UserToken:         userToken,
		HTTPClient:        client,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		PageSizes: services.PageSizes{
			Songs:          cfg.Library.SongPageSize,
			Playlists:      cfg.Library.PlaylistPageSize,
			PlaylistTracks: cfg.Library.PlaylistTracksPageSize,
			Recent:         cfg.Library.RecentPageSize,
		},
	})
}

// libraryService returns the injected library or an Apple Music client bound to the session.
func (r *Runner) libraryService(sessions tasks.SessionSource) (services.Library, error) {
	if r.library != nil {
		return r.library, nil
	}

	music, err := r.musicService("")
	if err != nil {
		return nil, err
	}
	return &sessionLibrary{base: music, sessions: sessions}, nil
}

// openManifest returns the cache manifest, opening the sqlite store and applying migrations on first use.
func (r *Runner) openManifest() (*cache.Manifest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.manifest != nil {
		return r.manifest, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	r.manifest = cache.NewManifest(cache.New(repositories.NewCacheEntryRepository(db), nil), r.config.CacheTTL())
	return r.manifest, nil
}

// newEngine wires the loader over the session, library client and cache.
func (r *Runner) newEngine() (*tasks.LibraryEngine, services.Library, *session.Provider, error) {
	provider, err := r.sessionProvider()
	if err != nil {
		return nil, nil, nil, err
	}

	lib, err := r.libraryService(provider)
	if err != nil {
		return nil, nil, nil, err
	}

	manifest, err := r.openManifest()
	if err != nil {
		return nil, nil, nil, err
	}

	engine := tasks.NewLibraryEngine(tasks.EngineOpts{
		Library:                lib,
		Sessions:               provider,
		Manifest:               manifest,
		Logger:                 shared.WithLogger(r.logger, "component", "loader"),
		PrefetchPlaylistTracks: r.config.Library.PrefetchPlaylistTracks,
		Concurrency:            r.config.Library.Concurrency,
	})
	return engine, lib, provider, nil
}

// loadSnapshot signs in, then loads the library from the cache or the API, logging progress.
//
// A partial load is logged and the datasets that did load are returned, unless no songs loaded.
func (r *Runner) loadSnapshot(ctx context.Context, force bool) (*models.Snapshot, services.Library, error) {
	engine, lib, _, err := r.newEngine()
	if err != nil {
		return nil, nil, err
	}

	if _, err := r.waitSession(ctx); err != nil {
		return nil, nil, err
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase)
		}
	}()

	snap, err := engine.Load(ctx, progress, force)
	close(progress)
	<-done

	if err != nil {
		if snap == nil || len(snap.Library) == 0 {
			return nil, nil, err
		}
		r.logger.Warn("library loaded with errors", "error", err)
	}
	return snap, lib, nil
}

func (r *Runner) newSelector(lib services.Library, withPalette bool) *tasks.Selector {
	agg := stats.NewAggregator(lib, shared.WithLogger(r.logger, "component", "stats"), r.config.Library.Concurrency)

	var gradients tasks.GradientSource
	if withPalette {
		gradients = palette.NewExtractor(palette.Options{
			SampleCount: r.config.Palette.SampleCount,
			MinColors:   r.config.Palette.MinColors,
			Threshold:   r.config.Palette.LuminanceThreshold,
			ArtworkSize: r.config.Palette.ArtworkSize,
			HTTPClient:  r.httpClient,
			Logger:      shared.WithLogger(r.logger, "component", "palette"),
		})
	}
	return tasks.NewSelector(agg, gradients, r.logger)
}

// sessionLibrary forwards to an Apple Music client carrying the current session's user token.
type sessionLibrary struct {
	base     *services.MusicService
	sessions tasks.SessionSource
}

var _ services.Library = (*sessionLibrary)(nil)

func (l *sessionLibrary) client() (*services.MusicService, error) {
	s, err := l.sessions.Current()
	if err != nil {
		return nil, err
	}
	return l.base.WithUserToken(s.UserToken), nil
}

func (l *sessionLibrary) LibrarySongs(ctx context.Context) ([]models.Track, error) {
	c, err := l.client()
	if err != nil {
		return nil, err
	}
	return c.LibrarySongs(ctx)
}

func (l *sessionLibrary) LibraryPlaylists(ctx context.Context) ([]models.Playlist, error) {
	c, err := l.client()
	if err != nil {
		return nil, err
	}
	return c.LibraryPlaylists(ctx)
}

func (l *sessionLibrary) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	c, err := l.client()
	if err != nil {
		return nil, err
	}
	return c.PlaylistTracks(ctx, playlistID)
}

func (l *sessionLibrary) RecentlyPlayed(ctx context.Context) ([]models.Track, error) {
	c, err := l.client()
	if err != nil {
		return nil, err
	}
	return c.RecentlyPlayed(ctx)
}

func (l *sessionLibrary) Recommendations(ctx context.Context, ids []string) ([]models.Recommendation, error) {
	c, err := l.client()
	if err != nil {
		return nil, err
	}
	return c.Recommendations(ctx, ids)
}

func (l *sessionLibrary) Name() string { return l.base.Name() }

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
