// Package main is the entry point for the pharmastock API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pharmastock/internal/app"
	"pharmastock/internal/config"
	"pharmastock/internal/core/clock"
	"pharmastock/internal/domain/auth"
	"pharmastock/internal/domain/settings"
	v1 "pharmastock/internal/infrastructure/http/v1"
	"pharmastock/internal/infrastructure/storage"
	"pharmastock/internal/scheduler"
	"pharmastock/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("ENV_FILE"))
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.Development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting pharmastock server", "env", cfg.App.Env, "storage", cfg.Database.Driver)

	// --- Storage ---
	opened, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer opened.Close()

	// --- Application ---
	loc, _ := cfg.App.Location() // validated by config.Load
	svc := app.New(opened.Backend, app.Options{
		Clock:            clock.NewSystem(loc),
		Numerator:        opened.Numerator,
		Settings:         settings.NewStore(cfg.Alerts.Thresholds),
		AlertConcurrency: cfg.Alerts.Concurrency,
	})

	// --- Scheduler ---
	// Sessions live in this process, so their expiry runs here.
	schedCfg, err := scheduler.ConfigFrom(cfg, true)
	if err != nil {
		log.Fatalw("invalid scheduler config", "error", err)
	}
	sched := scheduler.New(schedCfg, svc, log)
	if err := sched.Start(); err != nil {
		log.Fatalw("failed to start scheduler", "error", err)
	}

	// --- Router ---
	routerCfg := v1.RouterConfig{
		Service:       svc,
		Logger:        log,
		AuthRequired:  cfg.Auth.Required,
		Storage:       opened.Health,
		StorageDriver: opened.Driver,
		Development:   cfg.App.Development(),
	}
	if cfg.Auth.JWTSecret != "" {
		routerCfg.JWTValidator = auth.NewJWTService(auth.DefaultJWTConfig(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer))
	} else {
		log.Warn("JWT_SECRET is not set, requests are served without authentication")
	}
	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	sched.Stop(shutdownCtx)

	log.Info("server stopped")
}
