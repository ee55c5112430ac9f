package session_test

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
	"pharmastock/internal/domain/lots"
	"pharmastock/internal/domain/session"
	"pharmastock/internal/infrastructure/storage/memory"
	"pharmastock/pkg/numerator"
)

func newRegistry(clk clock.Clock) *session.Registry {
	mem := memory.New()
	return session.NewRegistry(numerator.New(numerator.DefaultConfig()), mem, lots.NewStore(mem, clk), clk)
}

func TestRegistry_OpenGetClose(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC))
	reg := newRegistry(clk)
	ctx := appctx.WithOperator(context.Background(), &appctx.OperatorContext{OperatorID: "emp-1"})
	loc := id.New()

	s, err := reg.Open(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, loc, s.LocationID)
	assert.Equal(t, "emp-1", s.OperatorID)
	assert.Equal(t, "BR-20260203-040506", s.Ledger.BatchReference())

	other, err := reg.Open(ctx, loc)
	require.NoError(t, err)
	assert.NotEqual(t, s.Ledger.BatchReference(), other.Ledger.BatchReference())

	got, err := reg.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, reg.Close(s.ID))
	_, err = reg.Get(s.ID)
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_OpenRequiresLocation(t *testing.T) {
	reg := newRegistry(clock.NewSystem(nil))
	_, err := reg.Open(context.Background(), id.ID{})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestRegistry_Expire(t *testing.T) {
	start := time.Date(2026, 2, 3, 8, 0, 0, 0, time.UTC)
	clk := clock.NewManual(start)
	reg := newRegistry(clk)

	idle, err := reg.Open(context.Background(), id.New())
	require.NoError(t, err)
	clk.Advance(time.Second)
	active, err := reg.Open(context.Background(), id.New())
	require.NoError(t, err)

	clk.Advance(50 * time.Minute)
	_, err = reg.Get(active.ID)
	require.NoError(t, err)

	clk.Advance(20 * time.Minute)
	assert.Equal(t, 1, reg.Expire(context.Background(), time.Hour))

	_, err = reg.Get(idle.ID)
	assert.True(t, apperror.IsNotFound(err))
	_, err = reg.Get(active.ID)
	assert.NoError(t, err)
}
