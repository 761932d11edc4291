// Command mockbackend serves the backend origin API from SQLite for local development.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crm/dashboard/internal/infrastructure/config"
	"github.com/crm/dashboard/internal/infrastructure/logger"
	"github.com/crm/dashboard/internal/infrastructure/persistence"
	"github.com/crm/dashboard/internal/infrastructure/telemetry"
	"github.com/crm/dashboard/internal/mockbackend"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: "mockbackend",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()
	log = log.Named("mockbackend")

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := mockbackend.OpenSQLite(cfg.Mock.DSN, log)
	if err != nil {
		log.Fatal("Failed to open mock database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.FromConfig(cfg.App, cfg.Telemetry, "mockbackend"), log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error("Failed to shut down tracer provider", zap.Error(err))
		}
	}()
	if err := tp.TraceDB(db.DB, "sqlite", true); err != nil {
		log.Warn("Failed to enable database tracing", zap.Error(err))
	}

	seeded, err := persistence.NewSeeder(db.DB, log).Seed(context.Background(), cfg.Auth.Password)
	if err != nil {
		log.Fatal("Failed to seed mock database", zap.Error(err))
	}
	log.Info("Mock database ready",
		zap.String("dsn", cfg.Mock.DSN),
		zap.Int64("products", seeded.Products),
		zap.Int64("orders", seeded.Orders),
	)

	server := mockbackend.NewServer(mockbackend.NewStore(db.DB), log)
	srv := &http.Server{
		Addr:              ":" + cfg.Mock.Port,
		Handler:           server.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Mock backend starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start mock backend", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Mock backend forced to shutdown", zap.Error(err))
	}
	log.Info("Mock backend stopped")
}
