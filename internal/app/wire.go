package app

import (
	"pharmastock/internal/core/clock"
	"pharmastock/internal/core/numerator"
	"pharmastock/internal/core/tx"
	"pharmastock/internal/domain/alerts"
	"pharmastock/internal/domain/catalog"
	"pharmastock/internal/domain/commit"
	"pharmastock/internal/domain/fifo"
	"pharmastock/internal/domain/lots"
	"pharmastock/internal/domain/monitor"
	"pharmastock/internal/domain/session"
	"pharmastock/internal/domain/settings"
	pkgnumerator "pharmastock/pkg/numerator"
)

// Backend is a storage implementation of the persistence service.
type Backend struct {
	Lots      lots.Repository
	Products  catalog.Repository
	Groups    catalog.GroupWriter
	TxManager tx.Manager
	Audit     commit.AuditSink
}

// Options tune the wiring. Zero values fall back to defaults.
type Options struct {
	Clock            clock.Clock
	Numerator        numerator.Generator
	Settings         settings.Provider
	AlertConcurrency int
}

// New builds the full component graph on top of a backend.
func New(b Backend, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.NewSystem(nil)
	}
	if opts.Numerator == nil {
		opts.Numerator = pkgnumerator.New(pkgnumerator.DefaultConfig())
	}
	if opts.Settings == nil {
		opts.Settings = settings.NewStore(settings.Default())
	}

	store := lots.NewStore(b.Lots, opts.Clock)
	mon := monitor.New(store)
	history, _ := b.Audit.(commit.AuditReader)

	return NewService(Deps{
		Lots:        store,
		Products:    b.Products,
		Engine:      fifo.NewEngine(store, b.TxManager),
		Monitor:     mon,
		Aggregator:  alerts.NewAggregator(mon, opts.Clock, opts.AlertConcurrency),
		Cache:       alerts.NewCache(),
		Coordinator: commit.NewCoordinator(store, b.Products, b.Groups, opts.Numerator, b.Audit),
		Sessions:    session.NewRegistry(opts.Numerator, b.Products, store, opts.Clock),
		Settings:    opts.Settings,
		History:     history,
	})
}
