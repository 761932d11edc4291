package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apppurchase "github.com/crm/dashboard/internal/application/purchase"
	"github.com/crm/dashboard/internal/domain/purchase"
	"github.com/crm/dashboard/internal/domain/shared"
	"github.com/crm/dashboard/internal/infrastructure/auth"
	"github.com/crm/dashboard/internal/infrastructure/cache"
	"github.com/crm/dashboard/internal/infrastructure/config"
	"github.com/crm/dashboard/internal/infrastructure/event"
	"github.com/crm/dashboard/internal/infrastructure/logger"
	"github.com/crm/dashboard/internal/infrastructure/persistence"
	"github.com/crm/dashboard/internal/infrastructure/telemetry"
	"github.com/crm/dashboard/internal/infrastructure/upstream"
	"github.com/crm/dashboard/internal/interfaces/http/handler"
	"github.com/crm/dashboard/internal/interfaces/http/middleware"
	"github.com/crm/dashboard/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Service:    cfg.App.Name,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx := context.Background()
	telCfg := telemetry.FromConfig(cfg.App, cfg.Telemetry, "")

	tp, err := telemetry.NewTracerProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	logsCfg := telCfg
	logsCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled
	lp, err := telemetry.NewLoggerProvider(ctx, logsCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = lp.Bridge(log)

	var metrics *telemetry.Metrics
	if cfg.Telemetry.MetricsEnabled {
		metrics = telemetry.NewMetrics()
	}

	log.Info("Starting CRM dashboard gateway",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("backend", cfg.Backend.Origin),
		zap.String("purchase_store", cfg.Purchases.Store),
	)

	// Purchase store
	repo, closeStore, err := openPurchaseStore(cfg, tp, log)
	if err != nil {
		log.Fatal("Failed to open purchase store", zap.Error(err))
	}
	defer closeStore()

	purchaseService := apppurchase.NewService(repo, log)
	checks := map[string]handler.Pinger{"purchases": purchaseService}

	// Purchase events
	var publisher shared.EventPublisher = event.NewLogPublisher(log)
	if cfg.RabbitMQ.URL != "" {
		rmq, err := event.DialRabbitMQ(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, event.NewEventSerializer(cfg.App.Name), log)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer func() {
			if err := rmq.Close(); err != nil {
				log.Error("Error closing RabbitMQ connection", zap.Error(err))
			}
		}()
		publisher = rmq
		checks["events"] = pingFunc(func(context.Context) error { return rmq.Ping() })
	}
	purchaseService.SetEventPublisher(publisher)

	// Backend origin
	upOpts := []upstream.Option{}
	if metrics != nil {
		upOpts = append(upOpts, upstream.WithObserver(metrics))
	}
	backend, err := upstream.NewClient(cfg.Backend.Origin, cfg.Backend.Timeout, log, upOpts...)
	if err != nil {
		log.Fatal("Failed to create backend client", zap.Error(err))
	}

	handlers := router.Handlers{
		Proxy:    handler.NewProxyHandler(backend),
		Purchase: handler.NewPurchaseHandler(purchaseService),
		Health:   handler.NewHealthHandler(cfg.App.Name, checks),
		Auth:     handler.NewAuthHandler(auth.NewCredentialChecker(cfg.Auth), auth.NewJWTService(cfg.Auth)),
	}

	engine := router.NewEngine(router.EngineConfig{
		HTTP: cfg.HTTP,
		Env:  cfg.App.Env,
		Tracing: middleware.TracingConfig{
			ServiceName: telCfg.ServiceName,
			Enabled:     tp.IsEnabled(),
		},
		Metrics: metrics,
	}, log, handlers)

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down tracer provider", zap.Error(err))
	}
	if err := lp.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// openPurchaseStore returns the configured purchase repository and its closer
func openPurchaseStore(cfg *config.Config, tp *telemetry.TracerProvider, log *zap.Logger) (purchase.Repository, func(), error) {
	switch cfg.Purchases.Store {
	case "postgres":
		db, err := persistence.NewDatabase(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
		if err != nil {
			return nil, nil, err
		}
		if err := tp.TraceDB(db.DB, "postgresql", cfg.App.Env == "development"); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}
		log.Info("Database connected successfully")
		return persistence.NewGormPurchaseRepository(db.DB), func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}, nil

	case "redis":
		factory := cache.NewPurchaseStoreFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithInMemoryFallback(cfg.App.Env != "production"),
		)
		store, err := factory.CreateStore()
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if c, ok := store.(interface{ Close() error }); ok {
				_ = c.Close()
			}
		}, nil

	default:
		log.Info("Using in-memory purchase store")
		return cache.NewInMemoryPurchaseStore(), func() {}, nil
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
