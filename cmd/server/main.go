package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leaderboard/internal/config"
	"leaderboard/internal/events"
	"leaderboard/internal/handlers"
	"leaderboard/internal/jobs"
	"leaderboard/internal/live"
	"leaderboard/internal/metrics"
	"leaderboard/internal/repositories"
	"leaderboard/internal/repositories/memory"
	mongostore "leaderboard/internal/repositories/mongo"
	"leaderboard/internal/routers"
	"leaderboard/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	newLogger        = zap.NewProduction
	gormOpen         = defaultGormOpen
	newDialector     = defaultDialector
	runAutoMigrate   = repositories.AutoMigrate
	connectMongo     = defaultConnectMongo
	newRedisClient   = events.NewRedisClient
	httpListenServe  = func(server *http.Server) error { return server.ListenAndServe() }
	notifySignals    = signal.Notify
	exitFunc         = os.Exit
	logFatalFn       = defaultLogFatal
	dbConnectTimeout = 30 * time.Second
	dbRetryInterval  = 500 * time.Millisecond
	shutdownTimeout  = 30 * time.Second
)

func defaultLogFatal(err error) {
	log.Printf("leaderboard-svc: %v", err)
	exitFunc(1)
}

func defaultDialector(backend, dsn string) gorm.Dialector {
	if backend == config.BackendSQLite {
		return sqlite.Open(dsn)
	}
	return postgres.Open(dsn)
}

func defaultGormOpen(backend, dsn string) (*gorm.DB, error) {
	return gorm.Open(newDialector(backend, dsn), &gorm.Config{TranslateError: true})
}

func defaultConnectMongo(ctx context.Context, uri, dbName string) (services.LeaderboardStore, func(context.Context) error, error) {
	client, err := mongostore.NewClient(ctx, uri, dbName)
	if err != nil {
		return nil, nil, err
	}
	store, err := mongostore.NewStore(ctx, client)
	if err != nil {
		client.Disconnect(ctx)
		return nil, nil, err
	}
	return store, client.Disconnect, nil
}

// connectWithRetry keeps dialing until the database answers a ping or the
// timeout elapses.
func connectWithRetry(backend, dsn string, timeout time.Duration, logger *zap.Logger) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error

	for attempt := 1; ; attempt++ {
		db, err := gormOpen(backend, dsn)
		if err == nil {
			if err = pingDB(db); err == nil {
				return db, nil
			}
		}
		lastErr = err

		if time.Now().Add(dbRetryInterval).After(deadline) {
			break
		}
		logger.Warn("database not ready, retrying", zap.String("backend", backend), zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(dbRetryInterval)
	}

	return nil, fmt.Errorf("connect to %s database: %w", backend, lastErr)
}

func pingDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return err
	}
	return nil
}

// openStore builds the configured backend. The returned closer releases its
// connections.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (services.LeaderboardStore, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres, config.BackendSQLite:
		dsn := cfg.Postgres.DSN()
		if cfg.StoreBackend == config.BackendSQLite {
			dsn = cfg.SQLitePath
		}
		db, err := connectWithRetry(cfg.StoreBackend, dsn, dbConnectTimeout, logger)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("get sql handle: %w", err)
		}
		if cfg.StoreBackend == config.BackendSQLite {
			sqlDB.SetMaxOpenConns(1)
		}
		if err := runAutoMigrate(db); err != nil {
			sqlDB.Close()
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		return repositories.NewSQLStore(db), func() { sqlDB.Close() }, nil

	case config.BackendMongo:
		store, disconnect, err := connectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to mongo: %w", err)
		}
		return store, func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := disconnect(dctx); err != nil {
				logger.Warn("mongo disconnect failed", zap.Error(err))
			}
		}, nil

	default:
		return memory.NewStore(), func() {}, nil
	}
}

// setupEvents picks the event publisher. With Redis every instance publishes
// to the shared channel and relays it into its own hub; without it the hub
// is fed directly.
func setupEvents(ctx context.Context, cfg *config.Config, hub *live.Hub, logger *zap.Logger) (services.EventPublisher, func(), error) {
	if !cfg.LiveUpdates {
		return events.NopPublisher{}, func() {}, nil
	}
	if cfg.RedisAddr == "" {
		return hub, func() {}, nil
	}

	rdb := newRedisClient(cfg.RedisAddr)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	if err := events.NewSubscriber(rdb, hub, logger).Start(ctx); err != nil {
		rdb.Close()
		return nil, nil, err
	}
	return events.NewRedisPublisher(rdb), func() { closeRedis(rdb, logger) }, nil
}

func closeRedis(rdb *redis.Client, logger *zap.Logger) {
	if err := rdb.Close(); err != nil {
		logger.Warn("redis close failed", zap.Error(err))
	}
}

func newRouter(cfg *config.Config, handler *handlers.LeaderboardHandler, healthHandler *handlers.HealthHandler, hub *live.Hub) *chi.Mux {
	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))
	router.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer, metrics.Middleware)

	var ws http.HandlerFunc
	if cfg.LiveUpdates {
		ws = hub.ServeWS
	}

	routers.HealthRoutes(router, healthHandler)
	routers.LeaderboardRoutes(router, handler, ws)
	return router
}

func run() error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Info("configuration loaded",
		zap.String("store", cfg.StoreBackend),
		zap.Bool("redis", cfg.RedisAddr != ""),
		zap.Bool("liveUpdates", cfg.LiveUpdates),
		zap.Bool("snapshots", cfg.Snapshot.Enabled))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	hub := live.NewHub(logger)
	publisher, closeEvents, err := setupEvents(ctx, cfg, hub, logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	svc := services.NewLeaderboardService(store, publisher, logger)
	if cfg.SeedDefaultUsers {
		if err := svc.SeedUsers(ctx, services.DefaultRoster); err != nil {
			return err
		}
	}

	snapshotJob := jobs.NewSnapshotJob(svc, jobs.SnapshotConfig{
		Enabled:  cfg.Snapshot.Enabled,
		Schedule: cfg.Snapshot.Schedule,
		Dir:      cfg.Snapshot.Dir,
	}, logger)
	if err := snapshotJob.Start(); err != nil {
		return err
	}
	defer snapshotJob.Stop()

	router := newRouter(cfg, handlers.NewLeaderboardHandler(svc, logger), handlers.NewHealthHandler(svc), hub)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("leaderboard service starting", zap.String("addr", server.Addr))
		serverErr <- httpListenServe(server)
	}()

	shutdownChan := make(chan os.Signal, 1)
	notifySignals(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownChan)

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case sig := <-shutdownChan:
		logger.Info("leaderboard service shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("leaderboard service exited")
	return nil
}

func main() {
	if err := run(); err != nil {
		logFatalFn(err)
	}
}
