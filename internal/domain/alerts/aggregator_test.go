package alerts_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmastock/internal/core/apperror"
	"pharmastock/internal/core/clock"
	"pharmastock/internal/core/id"
	"pharmastock/internal/core/types"
	"pharmastock/internal/domain/alerts"
	"pharmastock/internal/domain/catalog"
	"pharmastock/internal/domain/lots"
	"pharmastock/internal/domain/monitor"
	"pharmastock/internal/domain/settings"
	"pharmastock/internal/infrastructure/storage/memory"
)

var today = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func day(m time.Month, d int) time.Time {
	return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC)
}

type scenario struct {
	mem      *memory.Store
	location id.ID
	agg      *alerts.Aggregator
}

func newScenario(t *testing.T) *scenario {
	t.Helper()
	mem := memory.New()
	store := lots.NewStore(mem, clock.Fixed(today))
	return &scenario{
		mem:      mem,
		location: id.New(),
		agg:      alerts.NewAggregator(monitor.New(store), clock.Fixed(today), 3),
	}
}

func (s *scenario) product(name string, lotsIn ...lots.Batch) *catalog.Product {
	p := s.mem.SeedProduct(s.location, name, catalog.ProductTypeMedicine)
	for _, b := range lotsIn {
		b.ProductID = p.ID
		b.LocationID = p.LocationID
		b.QuantityReceived = b.QuantityAvailable
		b.SRP = types.MustMoney("1")
		b.EntryDate = day(1, 1)
		s.mem.PutBatch(b)
	}
	return p
}

func lot(qty int64, exp time.Time) lots.Batch {
	return lots.Batch{QuantityAvailable: types.Quantity(qty), ExpirationDate: exp}
}

func names(items []alerts.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

func (s *scenario) products(t *testing.T) []catalog.Product {
	t.Helper()
	ps, err := s.mem.ListByLocation(context.Background(), s.location)
	require.NoError(t, err)
	return ps
}

func TestBuildAlerts_Buckets(t *testing.T) {
	s := newScenario(t)
	th := settings.Default()
	th.LowStockThreshold = 10
	th.ExpiryWarningDays = 30

	s.product("Amlodipine", lot(40, day(4, 20)))                  // expiring in 19 days
	s.product("Bisoprolol", lot(40, day(4, 5)))                   // expiring in 4 days
	s.product("Captopril", lot(40, day(4, 5)))                    // same day as Bisoprolol
	s.product("Diltiazem", lot(5, day(3, 1)), lot(8, day(12, 1))) // expired lot, 8 live
	s.product("Enalapril", lot(3, day(12, 1)))                    // low
	s.product("Furosemide", lot(0, day(12, 1)))                   // out
	s.product("Gliclazide")                                       // no lots
	s.product("Hydralazine", lot(50, day(11, 1)))                 // healthy

	got, err := s.agg.BuildAlerts(context.Background(), s.products(t), th)
	require.NoError(t, err)

	assert.Equal(t, []string{"Bisoprolol", "Captopril", "Amlodipine"}, names(got.Expiring))
	assert.Equal(t, []string{"Diltiazem"}, names(got.Expired))
	assert.Equal(t, []string{"Enalapril", "Diltiazem"}, names(got.LowStock))
	assert.Equal(t, []string{"Furosemide"}, names(got.OutOfStock))
	assert.Empty(t, got.Diagnostics)
	assert.Equal(t, 7, got.Total())
}

func TestBuildAlerts_FailureFallsBackToProductExpiration(t *testing.T) {
	s := newScenario(t)
	th := settings.Default()

	good := s.product("Metformin", lot(2, day(12, 1)))
	withDate := s.product("Losartan", lot(100, day(12, 1)))
	noDate := s.product("Atorvastatin", lot(100, day(4, 2)))

	// Legacy per-product expiration, used only when the lot scan fails.
	products := s.products(t)
	legacy := day(4, 10)
	for i := range products {
		if products[i].ID == withDate.ID {
			products[i].Expiration = &legacy
		}
	}

	s.mem.OnListBatches = func(productID id.ID) error {
		if productID == withDate.ID || productID == noDate.ID {
			return errors.New("lot service timeout")
		}
		return nil
	}

	got, err := s.agg.BuildAlerts(context.Background(), products, th)
	require.NoError(t, err)

	require.Len(t, got.Expiring, 1)
	assert.Equal(t, "Losartan", got.Expiring[0].Name)
	assert.True(t, got.Expiring[0].Fallback)
	assert.Equal(t, 9, *got.Expiring[0].DaysUntilExpiry)

	assert.Equal(t, []string{"Metformin"}, names(got.LowStock))
	assert.Equal(t, good.ID, got.LowStock[0].ProductID)

	require.Len(t, got.Diagnostics, 2)
	for _, d := range got.Diagnostics {
		assert.Equal(t, apperror.CodePersistence, d.Code)
		assert.NotEmpty(t, d.Message)
	}
}

type slowClassifier struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	seen     []id.ID
}

func (c *slowClassifier) Classify(_ context.Context, productID, locationID id.ID, _ settings.Thresholds) (monitor.Status, error) {
	n := c.inFlight.Add(1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	c.inFlight.Add(-1)

	c.mu.Lock()
	c.seen = append(c.seen, productID)
	c.mu.Unlock()
	return monitor.Status{ProductID: productID, LocationID: locationID, Quantity: 100}, nil
}

func TestBuildAlerts_BoundedFanOut(t *testing.T) {
	classifier := &slowClassifier{}
	agg := alerts.NewAggregator(classifier, clock.Fixed(today), 4)

	products := make([]catalog.Product, 20)
	for i := range products {
		products[i] = catalog.Product{ID: id.New(), Name: "P"}
	}

	got, err := agg.BuildAlerts(context.Background(), products, settings.Default())
	require.NoError(t, err)
	assert.Zero(t, got.Total())
	assert.Len(t, classifier.seen, 20)
	assert.LessOrEqual(t, classifier.peak.Load(), int32(4))
	assert.Greater(t, classifier.peak.Load(), int32(1), "classifications run concurrently")
}

func TestBuildAlerts_CancelledContext(t *testing.T) {
	s := newScenario(t)
	s.product("Any", lot(1, day(12, 1)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.agg.BuildAlerts(ctx, s.products(t), settings.Default())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCache(t *testing.T) {
	c := alerts.NewCache()
	loc := id.New()

	_, ok := c.Get(loc)
	assert.False(t, ok)

	a := &alerts.Alerts{GeneratedAt: today}
	c.Put(loc, a)
	got, ok := c.Get(loc)
	require.True(t, ok)
	assert.Same(t, a, got)

	c.Invalidate(loc)
	_, ok = c.Get(loc)
	assert.False(t, ok)
}
