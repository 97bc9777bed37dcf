package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/pinboard/internal/bookmarks"
	"github.com/MrSnakeDoc/pinboard/internal/config"
	"github.com/MrSnakeDoc/pinboard/internal/httpserver"
	"github.com/MrSnakeDoc/pinboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pinboard/internal/index"
	"github.com/MrSnakeDoc/pinboard/internal/logger"
	"github.com/MrSnakeDoc/pinboard/internal/metrics"
	"github.com/MrSnakeDoc/pinboard/internal/redis"
	"github.com/MrSnakeDoc/pinboard/internal/scheduler"
	redisstore "github.com/MrSnakeDoc/pinboard/internal/store/redis"
	"github.com/MrSnakeDoc/pinboard/internal/version"
)

// bookmarkStore is what both backends provide: the manager's store plus
// the lookup used by the reminder handler.
type bookmarkStore interface {
	bookmarks.Store
	scheduler.BookmarkFinder
}

// App owns the Redis client and every long-running component of the service.
type App struct {
	cfg         *config.Config
	logger      logger.Logger
	redisClient *goredis.Client
	memIndex    *index.MemoryIndex
	jobs        *redisstore.JobQueue
	metrics     *metrics.Metrics
	manager     *bookmarks.Manager
	dispatcher  *scheduler.ReminderDispatcher
	reloader    *scheduler.CatalogReloader
	reloadCh    chan struct{}
	server      *httpserver.Server
}

// New connects to Redis and builds every component. It does not start anything.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	redisClient, err := redis.Connect(ctx, redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		DB:             cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return build(cfg, log, redisClient), nil
}

func build(cfg *config.Config, log logger.Logger, redisClient *goredis.Client) *App {
	memIndex := index.NewMemoryIndex()
	jobs := redisstore.NewJobQueue(redisClient)
	m := metrics.New()

	var store bookmarkStore
	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("bookmarks are kept in memory and will not survive a restart")
		store = memIndex
	default:
		store = redisstore.NewStore(redisClient)
	}

	manager := bookmarks.NewManager(store, jobs, memIndex,
		log.With(logger.String("component", "bookmarks")),
		bookmarks.WithRecorder(m))

	dispatcher := scheduler.NewReminderDispatcher(
		jobs,
		scheduler.NewReminderHandler(store, log.With(logger.String("component", "reminders"))),
		m,
		log,
		cfg.DispatchInterval,
		int64(cfg.DispatchBatch),
		cfg.ReminderRetryDelay,
	)

	reloadTrigger := make(chan struct{}, 1)
	reloader := scheduler.NewCatalogReloader(
		cfg.CatalogFile,
		memIndex,
		log,
		cfg.CatalogReloadInterval,
		reloadTrigger,
	)

	d := deps.Deps{
		Logger:        log,
		StartTime:     time.Now(),
		Version:       version.Version,
		Commit:        version.Commit,
		BuildDate:     version.BuildDate,
		GoVersion:     version.GoVersion,
		TimeNow:       time.Now,
		AllowedCIDRS:  cfg.AllowedCIDRS,
		TrustProxy:    cfg.TrustProxy,
		StoreBackend:  cfg.Store,
		RedisClient:   redisClient,
		MemoryIndex:   memIndex,
		Jobs:          jobs,
		Metrics:       m.Handler(),
		ReloadTrigger: reloadTrigger,
	}

	return &App{
		cfg:         cfg,
		logger:      log,
		redisClient: redisClient,
		memIndex:    memIndex,
		jobs:        jobs,
		metrics:     m,
		manager:     manager,
		dispatcher:  dispatcher,
		reloader:    reloader,
		reloadCh:    reloadTrigger,
		server:      httpserver.New(cfg, log, d),
	}
}

// Bookmarks returns the bookmark manager for callers embedding the app.
func (a *App) Bookmarks() *bookmarks.Manager {
	return a.manager
}

// Run starts the catalog reloader, the reminder dispatcher and the ops server,
// and blocks until SIGINT/SIGTERM or the first component failure.
func (a *App) Run(parent context.Context) error {
	a.logger.Info("starting pinboard",
		logger.String("version", version.Version),
		logger.String("commit", version.Commit),
		logger.String("built", version.BuildDate),
		logger.String("go", version.GoVersion),
		logger.String("store", a.cfg.Store),
		logger.String("listen", a.cfg.ListenPort))

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.reloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start catalog reloader: %w", err)
	}
	defer a.reloader.Stop()
	a.logger.Info("catalog reloader started",
		logger.Duration("interval", a.cfg.CatalogReloadInterval))

	if err := a.dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start reminder dispatcher: %w", err)
	}
	defer a.dispatcher.Stop()
	a.logger.Info("reminder dispatcher started",
		logger.Duration("interval", a.cfg.DispatchInterval),
		logger.Int("batch", a.cfg.DispatchBatch))

	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.CatalogWatch {
		watcher, err := scheduler.NewCatalogWatcher(a.cfg.CatalogFile, a.reloadCh, 500*time.Millisecond, a.logger)
		if err != nil {
			a.logger.Warn("catalog watcher disabled, relying on periodic reload", logger.Error(err))
		} else {
			g.Go(func() error {
				watcher.Run(gctx)
				return nil
			})
		}
	}

	g.Go(func() error {
		if err := a.server.Start(); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.server.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop server: %w", err)
		}
		return nil
	})

	err := g.Wait()

	if cerr := a.redisClient.Close(); cerr != nil {
		a.logger.Warn("failed to close redis", logger.Error(cerr))
	}

	if err != nil {
		return err
	}
	a.logger.Info("pinboard stopped cleanly")
	return nil
}
