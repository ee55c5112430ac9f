// Package scheduler runs the periodic jobs of the ledger: alert scans over
// the configured locations and expiry of idle staging sessions.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"pharmastock/internal/app"
	"pharmastock/internal/config"
	"pharmastock/internal/core/id"
	"pharmastock/pkg/logger"
)

// DefaultJobTimeout bounds a single run of any job.
const DefaultJobTimeout = 2 * time.Minute

// Config selects which jobs run and when.
type Config struct {
	ScanSchedule string
	Locations    []id.ID

	// ExpirySchedule is empty when session expiry should not run, e.g. in a
	// process that holds no sessions.
	ExpirySchedule string
	SessionTTL     time.Duration

	JobTimeout time.Duration
}

// ConfigFrom builds the scheduler configuration from the service config.
func ConfigFrom(cfg *config.Config, withSessions bool) (Config, error) {
	out := Config{
		ScanSchedule: cfg.Alerts.ScanSchedule,
		SessionTTL:   cfg.App.SessionTTL,
		JobTimeout:   DefaultJobTimeout,
	}
	for _, raw := range cfg.Alerts.Locations {
		lid, err := id.Parse(raw)
		if err != nil {
			return Config{}, fmt.Errorf("ALERT_LOCATIONS: invalid location id %q: %w", raw, err)
		}
		out.Locations = append(out.Locations, lid)
	}
	if withSessions {
		out.ExpirySchedule = "@every 5m"
	}
	return out, nil
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron    *cron.Cron
	service *app.Service
	cfg     Config
	log     *logger.Logger
}

// New creates a scheduler. Jobs are registered by Start.
func New(cfg Config, service *app.Service, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}

	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		service: service,
		cfg:     cfg,
		log:     log.WithComponent("scheduler"),
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	ctx := s.withLogger(context.Background())
	logger.Info(ctx, "starting scheduler",
		"scan_schedule", s.cfg.ScanSchedule,
		"locations", len(s.cfg.Locations),
		"expiry_schedule", s.cfg.ExpirySchedule,
	)

	if len(s.cfg.Locations) > 0 && s.cfg.ScanSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.ScanSchedule, func() { s.ScanAlerts(context.Background()) }); err != nil {
			return fmt.Errorf("schedule alert scan: %w", err)
		}
	} else {
		logger.Warn(ctx, "no alert locations configured, alert scan disabled")
	}

	if s.cfg.ExpirySchedule != "" && s.cfg.SessionTTL > 0 {
		if _, err := s.cron.AddFunc(s.cfg.ExpirySchedule, func() { s.ExpireSessions(context.Background()) }); err != nil {
			return fmt.Errorf("schedule session expiry: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the cron loop and waits for running jobs, up to ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	ctx = s.withLogger(ctx)
	logger.Info(ctx, "stopping scheduler")
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		logger.Warn(ctx, "scheduler stop timed out", "error", ctx.Err())
	}
}

// ScanAlerts rebuilds the alert cache of every configured location. A failing
// location is logged and does not stop the others.
func (s *Scheduler) ScanAlerts(parent context.Context) int {
	ctx, cancel := s.jobContext(parent)
	defer cancel()

	scanned := 0
	for _, lid := range s.cfg.Locations {
		start := time.Now()
		a, err := s.service.ScanLocation(ctx, lid)
		if err != nil {
			logger.Error(ctx, "alert scan failed", "location_id", lid, "error", err)
			continue
		}
		scanned++
		logger.Info(ctx, "alert scan finished",
			"location_id", lid,
			"expiring", len(a.Expiring),
			"expired", len(a.Expired),
			"low_stock", len(a.LowStock),
			"out_of_stock", len(a.OutOfStock),
			"diagnostics", len(a.Diagnostics),
			"took", time.Since(start),
		)
	}
	return scanned
}

// ExpireSessions closes staging sessions idle for longer than the TTL.
func (s *Scheduler) ExpireSessions(parent context.Context) int {
	ctx, cancel := s.jobContext(parent)
	defer cancel()

	closed := s.service.Sessions.Expire(ctx, s.cfg.SessionTTL)
	if closed > 0 {
		logger.Info(ctx, "expired idle sessions", "closed", closed)
	}
	return closed
}

func (s *Scheduler) jobContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.withLogger(parent), s.cfg.JobTimeout)
}

func (s *Scheduler) withLogger(ctx context.Context) context.Context {
	return logger.WithLogger(ctx, s.log)
}
