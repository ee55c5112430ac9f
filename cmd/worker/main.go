// Package main is the entry point for the pharmastock background worker.
// It scans the configured locations for alerts on a cron schedule and logs
// the results.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pharmastock/internal/app"
	"pharmastock/internal/config"
	"pharmastock/internal/core/clock"
	"pharmastock/internal/domain/settings"
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
	log.Infow("starting pharmastock worker", "storage", cfg.Database.Driver)

	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("worker on in-memory storage scans an empty ledger")
	}

	opened, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer opened.Close()

	loc, _ := cfg.App.Location()
	svc := app.New(opened.Backend, app.Options{
		Clock:            clock.NewSystem(loc),
		Numerator:        opened.Numerator,
		Settings:         settings.NewStore(cfg.Alerts.Thresholds),
		AlertConcurrency: cfg.Alerts.Concurrency,
	})

	schedCfg, err := scheduler.ConfigFrom(cfg, false)
	if err != nil {
		log.Fatalw("invalid scheduler config", "error", err)
	}
	sched := scheduler.New(schedCfg, svc, log)
	if err := sched.Start(); err != nil {
		log.Fatalw("failed to start scheduler", "error", err)
	}

	// First scan right away instead of waiting for the schedule.
	sched.ScanAlerts(ctx)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sched.Stop(stopCtx)

	log.Info("worker stopped")
}
