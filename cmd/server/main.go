// Package main is the entry point for the stockbook API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"stockbook/internal/config"
	"stockbook/internal/domain/auth"
	"stockbook/internal/domain/reports"
	"stockbook/internal/domain/resource"
	v1 "stockbook/internal/infrastructure/http/v1"
	"stockbook/internal/infrastructure/metrics"
	"stockbook/internal/infrastructure/storage"
	"stockbook/internal/infrastructure/storage/postgres"
	"stockbook/internal/infrastructure/storage/report_repo"
	"stockbook/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting stockbook server", "env", cfg.Env, "storage", cfg.Storage.Driver)

	// --- Storage ---
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalw("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
	}
	defer store.Close()

	// --- Metrics ---
	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
		if pg, ok := store.(*postgres.Store); ok {
			m.RegisterPool(pg.Pool())
		}
	}

	// --- Dispatcher and reports ---
	opts := []resource.Option{resource.WithValidation(cfg.ValidatePayloads)}
	if m != nil {
		opts = append(opts, resource.WithRecorder(m))
	}
	dispatcher := resource.NewDispatcher(store, opts...)
	log.Infow("Resources registered", "resources", dispatcher.Registry().Names())
	reportService := reports.NewService(report_repo.New(store))

	routerCfg := v1.RouterConfig{
		Logger:        log,
		Store:         store,
		StorageDriver: cfg.Storage.Driver,
		Dispatcher:    dispatcher,
		Reports:       reportService,
		Metrics:       m,
		CORSOrigins:   cfg.CORS.AllowedOrigins,
		Development:   cfg.IsDevelopment(),
	}
	if cfg.AuthEnabled() {
		jwtConfig := auth.DefaultJWTConfig(cfg.Auth.JWTSecret)
		jwtConfig.Issuer = cfg.Auth.Issuer
		routerCfg.JWTValidator = auth.NewJWTService(jwtConfig)
		log.Info("bearer token authentication enabled")
	}

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      v1.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	if pg, ok := store.(*postgres.Store); ok {
		pg.Pool().LogStats(ctx)
	}

	log.Info("server stopped")
}
