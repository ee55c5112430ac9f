// Package alerts merges per-product classifications into alert buckets.
package alerts

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"pharmastock/internal/core/apperror"
	"pharmastock/internal/core/clock"
	"pharmastock/internal/core/id"
	"pharmastock/internal/core/types"
	"pharmastock/internal/domain/catalog"
	"pharmastock/internal/domain/monitor"
	"pharmastock/internal/domain/settings"
	"pharmastock/pkg/logger"
)

// DefaultConcurrency bounds the number of classifications in flight.
const DefaultConcurrency = 8

// Item is one product in an alert bucket.
type Item struct {
	ProductID         id.ID          `json:"productId"`
	Name              string         `json:"name"`
	Quantity          types.Quantity `json:"quantity"`
	SoonestExpiration *time.Time     `json:"soonestExpiration,omitempty"`
	DaysUntilExpiry   *int           `json:"daysUntilExpiry,omitempty"`
	// Fallback is set when the item was derived from the product's own
	// expiration field after its lot scan failed.
	Fallback bool `json:"fallback,omitempty"`
}

// Diagnostic records a product whose classification failed.
type Diagnostic struct {
	ProductID id.ID  `json:"productId"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// Alerts are the sorted buckets of one scan.
type Alerts struct {
	Expiring    []Item       `json:"expiring"`
	Expired     []Item       `json:"expired"`
	LowStock    []Item       `json:"lowStock"`
	OutOfStock  []Item       `json:"outOfStock"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	GeneratedAt time.Time    `json:"generatedAt"`
}

// Classifier is the expiry/threshold monitor.
type Classifier interface {
	Classify(ctx context.Context, productID, locationID id.ID, th settings.Thresholds) (monitor.Status, error)
}

// Aggregator fans classifications out over a bounded task group.
type Aggregator struct {
	classifier  Classifier
	clock       clock.Clock
	concurrency int
}

// NewAggregator creates an aggregator. concurrency <= 0 uses DefaultConcurrency.
func NewAggregator(classifier Classifier, c clock.Clock, concurrency int) *Aggregator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if c == nil {
		c = clock.NewSystem(nil)
	}
	return &Aggregator{classifier: classifier, clock: c, concurrency: concurrency}
}

type result struct {
	product *catalog.Product
	status  monitor.Status
	err     error
}

// BuildAlerts classifies every product concurrently and buckets the results.
//
// A failed classification never aborts the scan: the product falls back to its
// own expiration field when it has one, and a diagnostic is recorded.
func (a *Aggregator) BuildAlerts(ctx context.Context, products []catalog.Product, th settings.Thresholds) (*Alerts, error) {
	results := make([]result, len(products))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range products {
		p := &products[i]
		results[i].product = p
		g.Go(func() error {
			st, err := a.classifier.Classify(gctx, p.ID, p.LocationID, th)
			results[i].status = st
			results[i].err = err
			return nil
		})
	}
	// Tasks never return an error; failures are kept per result.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	today := clock.Today(a.clock)
	out := &Alerts{
		Expiring:    []Item{},
		Expired:     []Item{},
		LowStock:    []Item{},
		OutOfStock:  []Item{},
		Diagnostics: []Diagnostic{},
		GeneratedAt: a.clock.Now(),
	}

	for _, r := range results {
		if r.err != nil {
			out.Diagnostics = append(out.Diagnostics, Diagnostic{
				ProductID: r.product.ID,
				Name:      r.product.Name,
				Code:      apperror.CodeOf(r.err),
				Message:   r.err.Error(),
			})
			logger.Warn(ctx, "classification failed",
				"product_id", r.product.ID,
				"error", r.err,
			)
			if th.ExpiryEnabled {
				a.fallback(out, r.product, today, th)
			}
			continue
		}
		out.add(r.product, r.status)
	}

	out.sort()
	return out, nil
}

// fallback classifies expiry from the product's legacy expiration field.
func (a *Aggregator) fallback(out *Alerts, p *catalog.Product, today time.Time, th settings.Thresholds) {
	if p.Expiration == nil {
		return
	}
	exp := types.DateOnly(*p.Expiration)
	days := types.DaysBetween(today, exp)
	item := Item{
		ProductID:         p.ID,
		Name:              p.Name,
		SoonestExpiration: &exp,
		DaysUntilExpiry:   &days,
		Fallback:          true,
	}
	switch {
	case exp.Before(today):
		out.Expired = append(out.Expired, item)
	case days <= th.ExpiryWarningDays:
		out.Expiring = append(out.Expiring, item)
	}
}

func (out *Alerts) add(p *catalog.Product, st monitor.Status) {
	item := Item{
		ProductID:         p.ID,
		Name:              p.Name,
		Quantity:          st.Quantity,
		SoonestExpiration: st.SoonestExpiration,
		DaysUntilExpiry:   st.DaysUntilExpiry,
	}
	if st.IsExpired {
		out.Expired = append(out.Expired, item)
	}
	if st.IsExpiringSoon {
		out.Expiring = append(out.Expiring, item)
	}
	if st.IsLowStock {
		out.LowStock = append(out.LowStock, item)
	}
	if st.IsOutOfStock {
		out.OutOfStock = append(out.OutOfStock, item)
	}
}

// Total is the number of bucketed items.
func (out *Alerts) Total() int {
	return len(out.Expiring) + len(out.Expired) + len(out.LowStock) + len(out.OutOfStock)
}

func (out *Alerts) sort() {
	byExpiry := func(items []Item) {
		sort.SliceStable(items, func(i, j int) bool {
			a, b := items[i], items[j]
			if da, db := deref(a.DaysUntilExpiry), deref(b.DaysUntilExpiry); da != db {
				return da < db
			}
			if !a.SoonestExpiration.Equal(*b.SoonestExpiration) {
				return a.SoonestExpiration.Before(*b.SoonestExpiration)
			}
			return tieBreak(a, b)
		})
	}
	byExpiry(out.Expiring)
	byExpiry(out.Expired)

	sort.SliceStable(out.LowStock, func(i, j int) bool {
		a, b := out.LowStock[i], out.LowStock[j]
		if a.Quantity != b.Quantity {
			return a.Quantity < b.Quantity
		}
		return tieBreak(a, b)
	})
	sort.SliceStable(out.OutOfStock, func(i, j int) bool {
		return tieBreak(out.OutOfStock[i], out.OutOfStock[j])
	})
}

func tieBreak(a, b Item) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return id.Compare(a.ProductID, b.ProductID) < 0
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// Cache keeps the most recent alerts per location.
type Cache struct {
	mu    sync.RWMutex
	byLoc map[id.ID]*Alerts
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{byLoc: make(map[id.ID]*Alerts)}
}

// Put stores alerts for a location.
func (c *Cache) Put(locationID id.ID, a *Alerts) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byLoc[locationID] = a
}

// Get returns the last alerts of a location.
func (c *Cache) Get(locationID id.ID) (*Alerts, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.byLoc[locationID]
	return a, ok
}

// Invalidate drops the cached alerts of a location.
func (c *Cache) Invalidate(locationID id.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byLoc, locationID)
}
