package lots_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmastock/internal/core/apperror"
	"pharmastock/internal/core/clock"
	appctx "pharmastock/internal/core/context"
	"pharmastock/internal/core/id"
	"pharmastock/internal/core/types"
	"pharmastock/internal/domain/catalog"
	"pharmastock/internal/domain/lots"
	"pharmastock/internal/infrastructure/storage/memory"
)

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func setup(t *testing.T) (*lots.Store, *memory.Store, *clock.Manual, *catalog.Product) {
	t.Helper()
	mem := memory.New()
	clk := clock.NewManual(now)
	p := mem.SeedProduct(id.New(), "Amoxicillin 250mg", catalog.ProductTypeMedicine)
	return lots.NewStore(mem, clk), mem, clk, p
}

func newBatch(p *catalog.Product, qty int64) lots.NewBatch {
	return lots.NewBatch{
		ProductID:      p.ID,
		LocationID:     p.LocationID,
		Quantity:       types.Quantity(qty),
		UnitCost:       types.MustMoney("4.50"),
		SRP:            types.MustMoney("7.25"),
		ExpirationDate: date(2027, 1, 31),
		BatchReference: "BR-20260310-090000",
	}
}

func TestCreateBatch_Validation(t *testing.T) {
	store, mem, _, p := setup(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(in *lots.NewBatch)
		field  string
	}{
		{name: "zero quantity", mutate: func(in *lots.NewBatch) { in.Quantity = 0 }, field: "quantity"},
		{name: "negative quantity", mutate: func(in *lots.NewBatch) { in.Quantity = -3 }, field: "quantity"},
		{name: "zero srp", mutate: func(in *lots.NewBatch) { in.SRP = types.Zero() }, field: "srp"},
		{name: "missing expiration", mutate: func(in *lots.NewBatch) { in.ExpirationDate = nil }, field: "expirationDate"},
		{name: "missing product", mutate: func(in *lots.NewBatch) { in.ProductID = id.ID{} }, field: "productId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newBatch(p, 10)
			tt.mutate(&in)

			_, err := store.CreateBatch(ctx, in)
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}

	assert.Equal(t, 0, mem.BatchCount(), "rejected lots must never reach the repository")
}

func TestCreateBatch_Defaults(t *testing.T) {
	store, _, _, p := setup(t)
	ctx := appctx.WithOperator(context.Background(), &appctx.OperatorContext{OperatorID: "emp-17"})

	b, err := store.CreateBatch(ctx, newBatch(p, 12))
	require.NoError(t, err)

	assert.Equal(t, types.Quantity(12), b.QuantityReceived)
	assert.Equal(t, b.QuantityReceived, b.QuantityAvailable)
	assert.Equal(t, "emp-17", b.EntryBy)
	assert.True(t, b.EntryDate.Equal(now))
	assert.Equal(t, "BR-20260310-090000", b.BatchReference)
}

func TestListBatches_FIFOOrder(t *testing.T) {
	store, mem, clk, p := setup(t)
	ctx := context.Background()

	// Entered out of order on purpose; the memory repo also returns newest first.
	clk.Set(now.Add(48 * time.Hour))
	third, err := store.CreateBatch(ctx, newBatch(p, 1))
	require.NoError(t, err)

	clk.Set(now)
	first, err := store.CreateBatch(ctx, newBatch(p, 1))
	require.NoError(t, err)
	second, err := store.CreateBatch(ctx, newBatch(p, 1)) // same entry date as first
	require.NoError(t, err)

	other := mem.SeedProduct(p.LocationID, "Other", catalog.ProductTypeNonMedicine)
	_, err = store.CreateBatch(ctx, newBatch(other, 1))
	require.NoError(t, err)

	got, err := store.ListBatches(ctx, p.ID, p.LocationID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []id.ID{first.ID, second.ID, third.ID}, []id.ID{got[0].ID, got[1].ID, got[2].ID})
}

func TestDecrementAvailable(t *testing.T) {
	store, mem, _, p := setup(t)
	ctx := context.Background()

	b, err := store.CreateBatch(ctx, newBatch(p, 5))
	require.NoError(t, err)

	updated, err := store.DecrementAvailable(ctx, b.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(2), updated.QuantityAvailable)
	assert.Equal(t, types.Quantity(5), updated.QuantityReceived)

	_, err = store.DecrementAvailable(ctx, b.ID, 3)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientLotQuantity))

	stored, _ := mem.Batch(b.ID)
	assert.Equal(t, types.Quantity(2), stored.QuantityAvailable, "failed decrement must not change the lot")

	_, err = store.DecrementAvailable(ctx, b.ID, 0)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	exhausted, err := store.DecrementAvailable(ctx, b.ID, 2)
	require.NoError(t, err)
	assert.True(t, exhausted.IsExhausted())

	list, err := store.ListBatches(ctx, p.ID, p.LocationID)
	require.NoError(t, err)
	assert.Len(t, list, 1, "exhausted lots stay as history")
}

func TestAggregateQuantity_SkipsExpired(t *testing.T) {
	store, mem, _, p := setup(t)
	ctx := context.Background()

	mem.PutBatch(lots.Batch{
		ProductID: p.ID, LocationID: p.LocationID,
		QuantityReceived: 8, QuantityAvailable: 8,
		SRP: types.MustMoney("1"), ExpirationDate: *date(2026, 3, 9), EntryDate: now.Add(-72 * time.Hour),
	})
	mem.PutBatch(lots.Batch{
		ProductID: p.ID, LocationID: p.LocationID,
		QuantityReceived: 5, QuantityAvailable: 5,
		SRP: types.MustMoney("1"), ExpirationDate: *date(2026, 3, 10), EntryDate: now.Add(-24 * time.Hour),
	})
	mem.PutBatch(lots.Batch{
		ProductID: p.ID, LocationID: p.LocationID,
		QuantityReceived: 9, QuantityAvailable: 4,
		SRP: types.MustMoney("1"), ExpirationDate: *date(2026, 12, 1), EntryDate: now,
	})

	qty, err := store.AggregateQuantity(ctx, p.ID, p.LocationID)
	require.NoError(t, err)
	// Lot expiring today still counts; yesterday's does not.
	assert.Equal(t, types.Quantity(9), qty)
}

func TestLastKnownPrice(t *testing.T) {
	store, _, clk, p := setup(t)
	ctx := context.Background()

	_, found, err := store.LastKnownPrice(ctx, p.ID, p.LocationID)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = store.CreateBatch(ctx, newBatch(p, 1))
	require.NoError(t, err)

	clk.Advance(time.Hour)
	in := newBatch(p, 1)
	in.SRP = types.MustMoney("9.99")
	_, err = store.CreateBatch(ctx, in)
	require.NoError(t, err)

	price, found, err := store.LastKnownPrice(ctx, p.ID, p.LocationID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, price.Equal(types.MustMoney("9.99")))
}

func TestBatchExpiry(t *testing.T) {
	b := lots.Batch{ExpirationDate: *date(2026, 3, 10), QuantityAvailable: 1}

	assert.False(t, b.IsExpired(time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)))
	assert.True(t, b.IsExpired(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)))
	assert.True(t, b.IsSellable(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)))
}
