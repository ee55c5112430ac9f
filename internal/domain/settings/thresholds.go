// Package settings supplies alert thresholds to the monitor and the alert
// aggregator. Thresholds are read on every scan; a change takes effect on the
// next classification without any push invalidation.
package settings

import (
	"context"
	"sync"

	"pharmastock/internal/core/apperror"
)

// Defaults used when no configuration overrides them.
const (
	DefaultLowStockThreshold = 10
	DefaultExpiryWarningDays = 30
)

// Thresholds are the alerting knobs of a location.
type Thresholds struct {
	LowStockThreshold int  `json:"lowStockThreshold"`
	ExpiryWarningDays int  `json:"expiryWarningDays"`
	ExpiryEnabled     bool `json:"expiryEnabled"`
	LowStockEnabled   bool `json:"lowStockEnabled"`
	OutOfStockEnabled bool `json:"outOfStockEnabled"`
}

// Default returns thresholds with every alert class enabled.
func Default() Thresholds {
	return Thresholds{
		LowStockThreshold: DefaultLowStockThreshold,
		ExpiryWarningDays: DefaultExpiryWarningDays,
		ExpiryEnabled:     true,
		LowStockEnabled:   true,
		OutOfStockEnabled: true,
	}
}

// Validate rejects negative thresholds.
func (t Thresholds) Validate() error {
	if t.LowStockThreshold < 0 {
		return apperror.NewFieldValidation("lowStockThreshold", "low stock threshold cannot be negative")
	}
	if t.ExpiryWarningDays < 0 {
		return apperror.NewFieldValidation("expiryWarningDays", "expiry warning days cannot be negative")
	}
	return nil
}

// Provider is the settings collaborator.
type Provider interface {
	Thresholds(ctx context.Context) (Thresholds, error)
}

// Static always returns the same thresholds.
type Static Thresholds

// Thresholds implements Provider.
func (s Static) Thresholds(context.Context) (Thresholds, error) {
	return Thresholds(s), nil
}

// Store holds thresholds that can be replaced at runtime.
type Store struct {
	mu     sync.RWMutex
	values Thresholds
}

// NewStore creates a store seeded with initial.
func NewStore(initial Thresholds) *Store {
	return &Store{values: initial}
}

// Thresholds implements Provider.
func (s *Store) Thresholds(context.Context) (Thresholds, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values, nil
}

// Update replaces the thresholds after validating them.
func (s *Store) Update(t Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.values = t
	s.mu.Unlock()
	return nil
}
