// Package monitor classifies a product's lot set against alert thresholds.
package monitor

import (
	"context"
	"fmt"
	"time"

	"pharmastock/internal/core/id"
	"pharmastock/internal/core/types"
	"pharmastock/internal/domain/lots"
	"pharmastock/internal/domain/settings"
)

// Status is the classification of one product at one location.
type Status struct {
	ProductID         id.ID          `json:"productId"`
	LocationID        id.ID          `json:"locationId"`
	IsExpired         bool           `json:"isExpired"`
	IsExpiringSoon    bool           `json:"isExpiringSoon"`
	IsLowStock        bool           `json:"isLowStock"`
	IsOutOfStock      bool           `json:"isOutOfStock"`
	SoonestExpiration *time.Time     `json:"soonestExpiration"`
	DaysUntilExpiry   *int           `json:"daysUntilExpiry"`
	Quantity          types.Quantity `json:"quantity"`
}

// Monitor reads lots through the lot store.
type Monitor struct {
	store *lots.Store
}

// New creates a monitor.
func New(store *lots.Store) *Monitor {
	return &Monitor{store: store}
}

// Classify scans every lot of the product and classifies it against th.
// "Today" is taken from the lot store's clock.
func (m *Monitor) Classify(ctx context.Context, productID, locationID id.ID, th settings.Thresholds) (Status, error) {
	batches, err := m.store.ListBatches(ctx, productID, locationID)
	if err != nil {
		return Status{}, fmt.Errorf("classify %s: %w", productID, err)
	}
	st := Evaluate(batches, m.store.Today(), th)
	st.ProductID = productID
	st.LocationID = locationID
	return st, nil
}

// Evaluate classifies a lot set as of today.
//
// The soonest expiration is taken in expiry order over lots that still hold
// stock, expired ones included; it is independent of consumption order.
// Quantity counts only lots that have not expired.
func Evaluate(batches []lots.Batch, today time.Time, th settings.Thresholds) Status {
	var st Status
	if len(batches) == 0 {
		return st
	}
	today = types.DateOnly(today)

	var soonest time.Time
	for i := range batches {
		b := &batches[i]
		if b.QuantityAvailable <= 0 {
			continue
		}
		exp := types.DateOnly(b.ExpirationDate)
		if soonest.IsZero() || exp.Before(soonest) {
			soonest = exp
		}
	}
	st.Quantity = lots.Available(batches, today)

	if !soonest.IsZero() {
		days := types.DaysBetween(today, soonest)
		st.SoonestExpiration = &soonest
		st.DaysUntilExpiry = &days
		if th.ExpiryEnabled {
			st.IsExpired = soonest.Before(today)
			st.IsExpiringSoon = !st.IsExpired && days >= 0 && days <= th.ExpiryWarningDays
		}
	}

	if th.LowStockEnabled {
		st.IsLowStock = st.Quantity > 0 && st.Quantity <= types.Quantity(th.LowStockThreshold)
	}
	if th.OutOfStockEnabled {
		st.IsOutOfStock = st.Quantity <= 0
	}
	return st
}
