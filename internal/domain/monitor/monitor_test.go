package monitor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmastock/internal/core/clock"
	"pharmastock/internal/core/id"
	"pharmastock/internal/core/types"
	"pharmastock/internal/domain/catalog"
	"pharmastock/internal/domain/fifo"
	"pharmastock/internal/domain/lots"
	"pharmastock/internal/domain/monitor"
	"pharmastock/internal/domain/settings"
	"pharmastock/internal/infrastructure/storage/memory"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func batch(qty int64, expiration time.Time) lots.Batch {
	return lots.Batch{
		ID:                id.New(),
		QuantityReceived:  types.Quantity(qty),
		QuantityAvailable: types.Quantity(qty),
		ExpirationDate:    expiration,
		EntryDate:         day(2026, 1, 1),
	}
}

func TestEvaluate_StockThresholds(t *testing.T) {
	th := settings.Default()
	th.LowStockThreshold = 10
	today := day(2026, 3, 1)
	far := day(2027, 1, 1)

	tests := []struct {
		name    string
		qty     int64
		wantLow bool
		wantOut bool
	}{
		{name: "at threshold", qty: 10, wantLow: true},
		{name: "above threshold", qty: 11},
		{name: "one piece", qty: 1, wantLow: true},
		{name: "empty", qty: 0, wantOut: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := monitor.Evaluate([]lots.Batch{batch(tt.qty, far)}, today, th)
			assert.Equal(t, tt.wantLow, st.IsLowStock)
			assert.Equal(t, tt.wantOut, st.IsOutOfStock)
			assert.Equal(t, types.Quantity(tt.qty), st.Quantity)
		})
	}
}

func TestEvaluate_NoLots(t *testing.T) {
	st := monitor.Evaluate(nil, day(2026, 3, 1), settings.Default())

	assert.False(t, st.IsExpired)
	assert.False(t, st.IsExpiringSoon)
	assert.False(t, st.IsLowStock)
	assert.False(t, st.IsOutOfStock)
	assert.Nil(t, st.SoonestExpiration)
	assert.Nil(t, st.DaysUntilExpiry)
}

func TestEvaluate_Expiry(t *testing.T) {
	th := settings.Default()
	th.ExpiryWarningDays = 30
	today := day(2026, 3, 1)

	tests := []struct {
		name         string
		expiration   time.Time
		wantDays     int
		wantExpired  bool
		wantExpiring bool
	}{
		{name: "expires today", expiration: today, wantDays: 0, wantExpiring: true},
		{name: "at warning edge", expiration: day(2026, 3, 31), wantDays: 30, wantExpiring: true},
		{name: "past warning edge", expiration: day(2026, 4, 1), wantDays: 31},
		{name: "expired yesterday", expiration: day(2026, 2, 28), wantDays: -1, wantExpired: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := monitor.Evaluate([]lots.Batch{batch(50, tt.expiration)}, today.Add(15*time.Hour), th)
			require.NotNil(t, st.DaysUntilExpiry)
			assert.Equal(t, tt.wantDays, *st.DaysUntilExpiry)
			assert.Equal(t, tt.wantExpired, st.IsExpired)
			assert.Equal(t, tt.wantExpiring, st.IsExpiringSoon)
		})
	}
}

func TestEvaluate_SoonestIgnoresExhaustedLots(t *testing.T) {
	empty := batch(0, day(2026, 3, 5))
	live := batch(4, day(2026, 9, 1))

	st := monitor.Evaluate([]lots.Batch{empty, live}, day(2026, 3, 1), settings.Default())
	require.NotNil(t, st.SoonestExpiration)
	assert.Equal(t, day(2026, 9, 1), *st.SoonestExpiration)
	assert.False(t, st.IsExpiringSoon)
}

func TestEvaluate_ExpiredLotStillReportedButNotCounted(t *testing.T) {
	expired := batch(6, day(2026, 2, 1))
	live := batch(20, day(2026, 12, 1))

	st := monitor.Evaluate([]lots.Batch{expired, live}, day(2026, 3, 1), settings.Default())
	assert.True(t, st.IsExpired)
	assert.False(t, st.IsExpiringSoon)
	assert.Equal(t, types.Quantity(20), st.Quantity)
	assert.False(t, st.IsLowStock)
}

func TestEvaluate_DisabledClasses(t *testing.T) {
	th := settings.Thresholds{LowStockThreshold: 10, ExpiryWarningDays: 30}

	st := monitor.Evaluate([]lots.Batch{batch(0, day(2026, 3, 2))}, day(2026, 3, 1), th)
	assert.False(t, st.IsOutOfStock)

	st = monitor.Evaluate([]lots.Batch{batch(3, day(2026, 3, 2))}, day(2026, 3, 1), th)
	assert.False(t, st.IsLowStock)
	assert.False(t, st.IsExpiringSoon)
	require.NotNil(t, st.DaysUntilExpiry, "dates are still reported")
	assert.Equal(t, 1, *st.DaysUntilExpiry)
}

func TestClassify_ExpiryOrderIndependentOfFIFO(t *testing.T) {
	mem := memory.New()
	store := lots.NewStore(mem, clock.Fixed(day(2026, 1, 10)))
	p := mem.SeedProduct(id.New(), "Cetirizine 10mg", catalog.ProductTypeMedicine)

	b1 := mem.PutBatch(lots.Batch{
		ProductID: p.ID, LocationID: p.LocationID,
		QuantityReceived: 10, QuantityAvailable: 10,
		SRP: types.MustMoney("3"), EntryDate: day(2026, 1, 1), ExpirationDate: day(2026, 12, 31),
	})
	b2 := mem.PutBatch(lots.Batch{
		ProductID: p.ID, LocationID: p.LocationID,
		QuantityReceived: 10, QuantityAvailable: 10,
		SRP: types.MustMoney("3"), EntryDate: day(2026, 1, 2), ExpirationDate: day(2026, 2, 1),
	})

	st, err := monitor.New(store).Classify(context.Background(), p.ID, p.LocationID, settings.Default())
	require.NoError(t, err)
	require.NotNil(t, st.SoonestExpiration)
	assert.Equal(t, day(2026, 2, 1), *st.SoonestExpiration)
	assert.Equal(t, 22, *st.DaysUntilExpiry)
	assert.True(t, st.IsExpiringSoon)
	assert.Equal(t, p.ID, st.ProductID)

	allocs, err := fifo.NewEngine(store, mem).Consume(context.Background(), p.ID, p.LocationID, 3)
	require.NoError(t, err)
	assert.Equal(t, []fifo.Allocation{{BatchID: b1.ID, Quantity: 3}}, allocs)

	untouched, _ := mem.Batch(b2.ID)
	assert.Equal(t, types.Quantity(10), untouched.QuantityAvailable)
}

func TestClassify_ListFailure(t *testing.T) {
	mem := memory.New()
	mem.OnListBatches = func(id.ID) error { return errors.New("timeout") }
	m := monitor.New(lots.NewStore(mem, clock.Fixed(day(2026, 1, 1))))

	_, err := m.Classify(context.Background(), id.New(), id.New(), settings.Default())
	assert.Error(t, err)
}
