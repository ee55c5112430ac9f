// Package storage selects and opens the configured storage backend.
package storage

import (
	"context"
	"fmt"

	"pharmastock/internal/app"
	"pharmastock/internal/config"
	corenumerator "pharmastock/internal/core/numerator"
	"pharmastock/internal/infrastructure/numerator"
	"pharmastock/internal/infrastructure/storage/memory"
	"pharmastock/internal/infrastructure/storage/postgres"
	"pharmastock/internal/infrastructure/storage/postgres/catalog_repo"
	"pharmastock/internal/infrastructure/storage/postgres/lot_repo"
	"pharmastock/pkg/logger"
	pkgnumerator "pharmastock/pkg/numerator"
)

// Opened is a ready backend plus what the process needs to operate it.
type Opened struct {
	Backend app.Backend
	Driver  string

	// Numerator is nil when the in-process generator is enough.
	Numerator corenumerator.Generator

	// Health is nil for backends without an external dependency.
	Health interface {
		Check(ctx context.Context) error
	}

	close func()
}

// Close releases the backend's resources.
func (o *Opened) Close() {
	if o.close != nil {
		o.close()
	}
}

// Open builds the backend named by cfg.Driver. The postgres backend has its
// schema applied before it is returned.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Opened, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		mem := memory.New()
		logger.Warn(ctx, "using in-memory storage, data is lost on restart")
		return &Opened{
			Backend: app.Backend{
				Lots:      mem,
				Products:  mem,
				Groups:    mem,
				TxManager: mem,
				Audit:     memory.NewAuditLog(),
			},
			Driver: config.DriverMemory,
		}, nil

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, postgres.PoolConfigFrom(cfg))
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}

		txm := postgres.NewTxManager(pool)
		audit, err := postgres.NewAuditLog(txm)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("audit log: %w", err)
		}
		products := catalog_repo.NewProductRepo(txm)

		return &Opened{
			Backend: app.Backend{
				Lots:      lot_repo.NewLotRepo(txm),
				Products:  products,
				Groups:    products,
				TxManager: txm,
				Audit:     audit,
			},
			Driver:    config.DriverPostgres,
			Numerator: numerator.New(txm, pkgnumerator.DefaultConfig()),
			Health:    pool,
			close: func() {
				stats := pool.Stats()
				logger.Info(ctx, "closing database pool",
					"total_conns", stats.TotalConns,
					"acquired_conns", stats.AcquiredConns,
				)
				pool.Close()
			},
		}, nil

	default:
		return nil, fmt.Errorf("storage driver %q is not supported", cfg.Driver)
	}
}
