// Package server provides the core application server and dependency injection.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ShalomGure/actors-api/internal/actor"
	"github.com/ShalomGure/actors-api/internal/api"
	"github.com/ShalomGure/actors-api/internal/clock/system"
	"github.com/ShalomGure/actors-api/internal/config"
	collyfetcher "github.com/ShalomGure/actors-api/internal/fetcher/colly"
	headlessfetcher "github.com/ShalomGure/actors-api/internal/fetcher/headless"
	"github.com/ShalomGure/actors-api/internal/id/uuid"
	"github.com/ShalomGure/actors-api/internal/logging"
	memorypublisher "github.com/ShalomGure/actors-api/internal/publisher/memory"
	gcppublisher "github.com/ShalomGure/actors-api/internal/publisher/pubsub"
	"github.com/ShalomGure/actors-api/internal/scraper"
	"github.com/ShalomGure/actors-api/internal/seed"
	"github.com/ShalomGure/actors-api/internal/service"
	gcsstorage "github.com/ShalomGure/actors-api/internal/storage/gcs"
	localstorage "github.com/ShalomGure/actors-api/internal/storage/local"
	memorystorage "github.com/ShalomGure/actors-api/internal/storage/memory"
	pgstore "github.com/ShalomGure/actors-api/internal/storage/postgres"
)

// App contains the application's dependencies.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     actor.Store
	source    actor.Source
	service   *service.Service
	apiServer *api.Server
	closers   []closer
}

type closer struct {
	name string
	fn   func() error
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("creating application",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("environment", cfg.Server.Environment),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("archive_backend", cfg.Archive.Backend),
		zap.Int("api_keys", len(cfg.Auth.APIKeys)),
	)
	return &App{cfg: cfg, logger: logger}, nil
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Source returns the configured listing provider.
func (a *App) Source() actor.Source {
	return a.source
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Seed fills an empty store from the listing provider.
func (a *App) Seed(ctx context.Context) (seed.Result, error) {
	res, err := seed.New(a.store, a.source, a.logger.Named("seed")).Seed(ctx)
	if err != nil {
		return res, fmt.Errorf("seed actors: %w", err)
	}
	return res, nil
}

// Run seeds the store, then serves HTTP until the context is canceled or a
// termination signal arrives. A failed seed stops startup.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := a.Seed(ctx); err != nil {
		a.Close()
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
		close(serveErr)
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	timeout := a.cfg.ShutdownTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	a.Close()

	if err := <-serveErr; err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Close releases infrastructure clients in reverse construction order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Warn("close failed", zap.String("component", c.name), zap.Error(err))
		}
	}
	a.closers = nil
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
}

func (a *App) onClose(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return BuildWithLogger(ctx, cfg, logger)
}

// BuildWithLogger is Build with a caller-supplied logger.
func BuildWithLogger(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app, err := NewApp(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("app init failed: %w", err)
	}
	app.logger.Info("building application dependencies")

	if app.store, err = setupStore(ctx, app); err != nil {
		app.Close()
		return nil, err
	}
	archive, err := setupArchive(ctx, app)
	if err != nil {
		app.Close()
		return nil, err
	}
	publisher, err := setupPublisher(ctx, app)
	if err != nil {
		app.Close()
		return nil, err
	}

	clock := system.New()
	app.source = scraper.NewProvider(scraper.ProviderConfig{
		Name: cfg.Scraper.Provider,
		URL:  cfg.Scraper.URL,
		Selectors: scraper.Selectors{
			Item:     cfg.Scraper.Selectors.Item,
			Title:    cfg.Scraper.Selectors.Title,
			Image:    cfg.Scraper.Selectors.Image,
			KnownFor: cfg.Scraper.Selectors.KnownFor,
			Bio:      cfg.Scraper.Selectors.Bio,
		},
		ArchivePrefix: cfg.Archive.Prefix,
	}, setupFetcher(app), archive, clock, app.logger.Named("scraper"))

	app.service = service.New(app.store, service.Options{
		Publisher: publisher,
		Topic:     cfg.PubSub.TopicName,
		IDs:       uuid.New(),
		Clock:     clock,
		Logger:    app.logger.Named("service"),
	})
	app.apiServer = api.NewServer(app.service, *cfg, app.logger.Named("api"))
	return app, nil
}

func setupStore(ctx context.Context, app *App) (actor.Store, error) {
	switch app.cfg.Storage.Backend {
	case "postgres":
		app.logger.Info("using postgres actor store", zap.String("table", app.cfg.DB.Table))
		store, err := pgstore.NewActorStore(ctx, pgstore.Config{
			DSN:      app.cfg.DB.DSN,
			Table:    app.cfg.DB.Table,
			MaxConns: app.cfg.DB.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("actor store init failed: %w", err)
		}
		app.onClose("postgres", func() error {
			store.Close()
			return nil
		})
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("actor store schema: %w", err)
		}
		return store, nil
	default:
		app.logger.Info("using in-memory actor store")
		return memorystorage.NewActorStore(), nil
	}
}

func setupArchive(ctx context.Context, app *App) (actor.BlobStore, error) {
	switch app.cfg.Archive.Backend {
	case "gcs":
		app.logger.Info("using GCS page archive", zap.String("bucket", app.cfg.Archive.GCSBucket))
		store, err := gcsstorage.Dial(ctx, gcsstorage.Config{Bucket: app.cfg.Archive.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		app.onClose("gcs", store.Close)
		return store, nil
	case "local":
		app.logger.Info("using local page archive", zap.String("path", app.cfg.Archive.BaseDir))
		store, err := localstorage.New(localstorage.Config{BaseDir: app.cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		return store, nil
	case "memory":
		app.logger.Info("using in-memory page archive")
		return memorystorage.NewBlobStore(), nil
	default:
		app.logger.Debug("page archiving disabled")
		return nil, nil
	}
}

func setupPublisher(ctx context.Context, app *App) (actor.Publisher, error) {
	if app.cfg.PubSub.TopicName == "" || app.cfg.PubSub.ProjectID == "" {
		app.logger.Warn("no Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	publisher, err := gcppublisher.Dial(ctx, app.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	app.onClose("pubsub", publisher.Close)
	app.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", app.cfg.PubSub.ProjectID),
		zap.String("topic", app.cfg.PubSub.TopicName),
	)
	return publisher, nil
}

func setupFetcher(app *App) actor.Fetcher {
	if app.cfg.Scraper.Headless {
		fetcher := headlessfetcher.NewChromedp(headlessfetcher.Config{
			UserAgent:         app.cfg.Scraper.UserAgent,
			NavigationTimeout: time.Duration(app.cfg.Scraper.NavTimeoutSeconds) * time.Second,
			WaitSelector:      app.cfg.Scraper.WaitSelector,
		})
		app.onClose("headless", func() error {
			fetcher.Close()
			return nil
		})
		app.logger.Info("using headless fetcher", zap.String("wait_selector", app.cfg.Scraper.WaitSelector))
		return fetcher
	}
	app.logger.Info("using colly fetcher", zap.String("user_agent", app.cfg.Scraper.UserAgent))
	return collyfetcher.New(collyfetcher.Config{
		UserAgent:     app.cfg.Scraper.UserAgent,
		RespectRobots: app.cfg.Scraper.RespectRobots,
		Timeout:       app.cfg.ScrapeTimeout(),
	})
}
