// Package server provides the core application server and dependency wiring.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/JakeFAU/bitcrush/internal/api"
	"github.com/JakeFAU/bitcrush/internal/artifact"
	"github.com/JakeFAU/bitcrush/internal/bitcrush"
	"github.com/JakeFAU/bitcrush/internal/clock/system"
	"github.com/JakeFAU/bitcrush/internal/config"
	"github.com/JakeFAU/bitcrush/internal/dispatcher"
	"github.com/JakeFAU/bitcrush/internal/hash/sha256"
	"github.com/JakeFAU/bitcrush/internal/id/uuid"
	"github.com/JakeFAU/bitcrush/internal/logging"
	memorypublisher "github.com/JakeFAU/bitcrush/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/bitcrush/internal/publisher/pubsub"
	queueMemory "github.com/JakeFAU/bitcrush/internal/queue/memory"
	"github.com/JakeFAU/bitcrush/internal/service"
	gcsstorage "github.com/JakeFAU/bitcrush/internal/storage/gcs"
	localstorage "github.com/JakeFAU/bitcrush/internal/storage/local"
	memoryStorage "github.com/JakeFAU/bitcrush/internal/storage/memory"
	pgstore "github.com/JakeFAU/bitcrush/internal/storage/postgres"
	"github.com/JakeFAU/bitcrush/internal/telemetry"
	"github.com/JakeFAU/bitcrush/internal/worker"
)

// App contains the application's dependencies.
type App struct {
	cfg             *config.Config
	logger          *zap.Logger
	apiServer       *api.Server
	service         *service.Service
	dispatch        *dispatcher.Dispatcher
	queue           *queueMemory.Queue
	pubsubClient    *pubsub.Client
	pubsubPublisher *pubsub.Publisher
	storage         *storage.Client
	ledger          artifact.Ledger
	tracerShutdown  func(context.Context) error

	workersDone chan struct{}
	closeOnce   sync.Once
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	// Only non-sensitive fields; the DSN stays out of the logs.
	type SanitizedConfig struct {
		ServerPort     int    `json:"server_port"`
		Workers        int    `json:"workers"`
		QueueDepth     int    `json:"queue_depth"`
		OutputQuality  int    `json:"output_quality"`
		ArchiveBackend string `json:"archive_backend"`
		Ledger         bool   `json:"ledger"`
		PubSub         bool   `json:"pubsub"`
	}
	safeCfg := SanitizedConfig{
		ServerPort:     cfg.Server.Port,
		Workers:        cfg.Transform.Workers,
		QueueDepth:     cfg.Transform.QueueDepth,
		OutputQuality:  cfg.Transform.OutputQuality,
		ArchiveBackend: cfg.Archive.Backend,
		Ledger:         cfg.Database.DSN != "",
		PubSub:         cfg.PubSub.Enabled(),
	}
	logger.Info("Creating application", zap.Any("config", safeCfg))
	return &App{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Handler returns the API router wrapped in OpenTelemetry server instrumentation.
func (a *App) Handler() http.Handler {
	return otelhttp.NewHandler(a.apiServer.Handler(), "bitcrush.http")
}

// Run starts the application and blocks until the context is canceled or a
// termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application started")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	a.startWorkers(workerCtx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout(),
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	a.stopWorkers(shutdownCtx, cancelWorkers)
	if err := a.Close(shutdownCtx); err != nil {
		return err
	}
	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}

func (a *App) startWorkers(ctx context.Context) {
	a.workersDone = make(chan struct{})
	go func() {
		defer close(a.workersDone)
		a.logger.Info("dispatcher started", zap.Int("workers", a.cfg.Transform.Workers))
		a.dispatch.Run(ctx)
	}()
}

// stopWorkers cancels the pool and waits for it, bounded by ctx.
func (a *App) stopWorkers(ctx context.Context, cancel context.CancelFunc) {
	cancel()
	if a.workersDone == nil {
		return
	}
	select {
	case <-a.workersDone:
	case <-ctx.Done():
		a.logger.Warn("workers did not stop before shutdown deadline")
	}
}

// Close gracefully shuts down the application. It is safe to call more than once.
func (a *App) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		if a.queue != nil {
			a.queue.Close()
		}
		if a.service != nil {
			if err := a.service.Wait(ctx); err != nil {
				a.logger.Warn("sinks did not drain before shutdown deadline", zap.Error(err))
			}
		}
		a.closeInfrastructure()
		a.closeObservability(ctx)
		a.logger.Info("shutdown complete")
	})
	return nil
}

func (a *App) closeInfrastructure() {
	if a.pubsubPublisher != nil {
		a.pubsubPublisher.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.ledger != nil {
		a.ledger.Close()
	}
}

func (a *App) closeObservability(ctx context.Context) {
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
}

// Build creates the application's dependencies. On failure everything created
// so far is closed again.
func Build(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	logger, err := logging.New(cfg.Logging.Development,
		zap.String("service", cfg.Telemetry.ServiceName),
		zap.String("version", cfg.Telemetry.Version),
	)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	app, err := NewApp(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("app init failed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = app.Close(context.WithoutCancel(ctx))
		}
	}()

	tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     cfg.Telemetry.Version,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		SampleRate:  cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("tracer init failed: %w", err)
	}
	app.tracerShutdown = tp.Shutdown

	app.logger.Info("building application dependencies")

	opts := []service.Option{
		service.WithLogger(logger.Named("service")),
		service.WithHasher(sha256.New()),
		service.WithClock(system.New()),
		service.WithSinkTimeout(cfg.SinkTimeout()),
	}

	archive, err := setupArchive(ctx, app)
	if err != nil {
		return nil, err
	}
	if archive != nil {
		opts = append(opts, service.WithArchive(archive, cfg.Archive.Prefix))
	}

	if err = setupDatabase(ctx, app); err != nil {
		return nil, err
	}
	if app.ledger != nil {
		opts = append(opts, service.WithLedger(app.ledger))
	}

	publisher, err := setupPublisher(ctx, app)
	if err != nil {
		return nil, err
	}
	opts = append(opts, service.WithPublisher(publisher, cfg.PubSub.TopicName))

	app.queue = queueMemory.NewQueue(cfg.Transform.QueueDepth)
	app.dispatch = setupDispatcher(app)

	app.service, err = service.New(app.dispatch, memoryStorage.NewArtifactStore(), uuid.NewUUIDGenerator(), opts...)
	if err != nil {
		return nil, fmt.Errorf("service init failed: %w", err)
	}

	app.apiServer, err = api.NewServer(app.service, api.Options{
		RequestTimeout: cfg.RequestTimeout(),
		MaxUploadBytes: cfg.Transform.MaxUploadBytes,
	}, logger.Named("api"))
	if err != nil {
		return nil, fmt.Errorf("api init failed: %w", err)
	}

	return app, nil
}

func setupArchive(ctx context.Context, app *App) (artifact.BlobStore, error) {
	var (
		blobStore artifact.BlobStore
		err       error
	)
	switch app.cfg.Archive.Backend {
	case config.ArchiveGCS:
		app.logger.Info("using GCS archive backend")
		app.storage, err = storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		blobStore, err = gcsstorage.New(app.storage, gcsstorage.Config{
			Bucket: app.cfg.Archive.Bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		app.logger.Debug("GCS archive backend", zap.String("bucket", app.cfg.Archive.Bucket))
	case config.ArchiveLocal:
		app.logger.Info("using local archive backend")
		blobStore, err = localstorage.New(localstorage.Config{BaseDir: app.cfg.Archive.Local.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		app.logger.Debug("local archive backend", zap.String("path", app.cfg.Archive.Local.BaseDir))
	case config.ArchiveMemory:
		app.logger.Info("using in-memory archive backend")
		blobStore = memoryStorage.NewBlobStore()
	default:
		app.logger.Info("archive disabled")
	}
	return blobStore, nil
}

func setupDatabase(ctx context.Context, app *App) error {
	if app.cfg.Database.DSN == "" {
		app.logger.Warn("No DSN specified for database, skipping submission ledger")
		return nil
	}
	store, err := pgstore.NewSubmissionStore(ctx, pgstore.SubmissionStoreConfig{
		DSN:             app.cfg.Database.DSN,
		Table:           app.cfg.Database.Table,
		MaxConns:        app.cfg.Database.MaxConns,
		MinConns:        app.cfg.Database.MinConns,
		MaxConnLifetime: app.cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("submission store init failed: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return fmt.Errorf("submission store schema failed: %w", err)
	}
	app.ledger = store
	app.logger.Info("submission ledger initialized", zap.String("table", app.cfg.Database.Table))
	return nil
}

func setupPublisher(ctx context.Context, app *App) (artifact.Publisher, error) {
	if !app.cfg.PubSub.Enabled() {
		app.logger.Warn("No Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	var err error
	app.pubsubClient, err = pubsub.NewClient(ctx, app.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	app.pubsubPublisher = app.pubsubClient.Publisher(app.cfg.PubSub.TopicName)
	app.logger.Info(
		"Pub/Sub publisher initialized",
		zap.String("project", app.cfg.PubSub.ProjectID),
		zap.String("topic", app.cfg.PubSub.TopicName),
	)
	return gcppublisher.New(app.pubsubPublisher), nil
}

func setupDispatcher(app *App) *dispatcher.Dispatcher {
	engine := bitcrush.New(
		bitcrush.WithOutputQuality(app.cfg.Transform.OutputQuality),
		bitcrush.WithMaxPixels(app.cfg.Transform.MaxPixels),
	)
	app.logger.Info("transform config",
		zap.Int("workers", app.cfg.Transform.Workers),
		zap.Int("queue_depth", app.cfg.Transform.QueueDepth),
		zap.Int("output_quality", engine.OutputQuality()),
		zap.Int("max_pixels", engine.MaxPixels()),
	)

	workers := make([]*worker.Worker, 0, app.cfg.Transform.Workers)
	for i := 0; i < app.cfg.Transform.Workers; i++ {
		workers = append(workers, worker.New(
			app.queue,
			engine,
			app.logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	return dispatcher.New(app.queue, workers)
}
