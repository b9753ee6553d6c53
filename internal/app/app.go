package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dori/buebu/internal/config"
	"github.com/dori/buebu/internal/generation"
	"github.com/dori/buebu/internal/generation/anthropic"
	"github.com/dori/buebu/internal/generation/lorem"
	"github.com/dori/buebu/internal/notify"
	"github.com/dori/buebu/internal/projects"
	"github.com/dori/buebu/internal/status"
	"github.com/dori/buebu/internal/storage"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned when another buebu holds the data directory.
var ErrAlreadyRunning = errors.New("another instance of buebu is already running")

// App holds the application state and dependencies. It is built once at
// startup and passed to whatever needs it.
type App struct {
	Config    *config.Config
	Storage   *storage.Engine
	Projects  *projects.Store
	Status    *status.Store
	Generator *generation.Controller
	Notifier  *notify.Notifier
	DataDir   string

	logger   *zap.Logger
	saver    *storage.Debouncer
	lockFile *flock.Flock
	newID    func() string

	// loadSeq numbers Generate calls; only the latest lowers the loading flag
	loadMu  sync.Mutex
	loadSeq uint64
}

// Option customizes New.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	provider generation.Provider
	tiers    []storage.Backend
	noLock   bool
}

// WithLogger sets the root logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithProvider replaces the configured AI provider.
func WithProvider(p generation.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithTiers replaces the configured storage tiers.
func WithTiers(tiers ...storage.Backend) Option {
	return func(o *options) { o.tiers = tiers }
}

// WithoutLock skips the single-instance lock. Only for read-only commands.
func WithoutLock() Option {
	return func(o *options) { o.noLock = true }
}

// New creates a new application instance and loads the stored projects.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.Storage.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	app := &App{
		Config:   cfg,
		DataDir:  cfg.Storage.DataDir,
		Projects: projects.NewStore(),
		Status:   status.NewStore(),
		Notifier: notify.NewNotifier(),
		logger:   o.logger.Named("app"),
		newID:    uuid.NewString,
	}
	app.Notifier.SetEnabled(cfg.Notify.Enabled)

	if !o.noLock {
		if err := app.acquireLock(); err != nil {
			return nil, err
		}
	}

	tiers := o.tiers
	if tiers == nil {
		tiers = defaultTiers(cfg)
	}
	app.Storage = storage.NewEngine(o.logger.Named("storage"), tiers...)

	provider := o.provider
	if provider == nil {
		var err error
		if provider, err = newProvider(cfg.Provider); err != nil {
			if cerr := app.Storage.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("failed to close storage: %w", cerr))
			}
			app.releaseLock()
			return nil, err
		}
	}
	app.Generator = generation.NewController(provider, o.logger.Named("generation"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	app.Projects.SetAll(app.Storage.Load(ctx))

	// Registered after the initial load so loading never writes back.
	app.saver = storage.NewDebouncer(cfg.Storage.SaveDebounce, app.Storage.Save)
	app.Projects.OnChange(app.saver.Schedule)

	app.logger.Info("started",
		zap.String("data_dir", app.DataDir),
		zap.String("provider", provider.Name()),
		zap.Int("projects", app.Projects.Len()))
	return app, nil
}

func defaultTiers(cfg *config.Config) []storage.Backend {
	var primary storage.Backend
	switch cfg.Storage.Primary {
	case config.PrimaryRedis:
		primary = storage.NewRedisBackend(cfg.Storage.RedisAddr)
	case config.PrimaryNone:
		primary = storage.Absent{Label: "none"}
	default:
		primary = storage.NewSQLiteBackend(filepath.Join(cfg.Storage.DataDir, "buebu.db"))
	}
	fallback := storage.NewFileBackend(filepath.Join(cfg.Storage.DataDir, "snapshots"))
	return []storage.Backend{primary, fallback}
}

func newProvider(cfg config.ProviderConfig) (generation.Provider, error) {
	switch cfg.Name {
	case config.ProviderLorem:
		return lorem.NewProvider(lorem.DefaultDelay), nil
	case config.ProviderAnthropic, "":
		return anthropic.NewProvider(anthropic.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Name)
	}
}

// acquireLock acquires an exclusive file lock to prevent multiple instances
func (a *App) acquireLock() error {
	lockPath := filepath.Join(a.DataDir, "buebu.lock")
	a.lockFile = flock.New(lockPath)

	locked, err := a.lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if !locked {
		return ErrAlreadyRunning
	}

	return nil
}

// releaseLock releases the file lock
func (a *App) releaseLock() {
	if a.lockFile != nil {
		a.lockFile.Unlock()
	}
}

// Flush writes any pending project changes now.
func (a *App) Flush() {
	a.saver.Flush()
}

// Close stops any generation, writes pending changes and releases resources.
func (a *App) Close() error {
	var errs []error

	a.Generator.Cancel()
	a.saver.Stop()

	if err := a.Storage.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
	}

	a.releaseLock()
	a.logger.Info("stopped")

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
