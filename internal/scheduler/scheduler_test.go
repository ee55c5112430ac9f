package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"pharmastock/internal/app"
	"pharmastock/internal/config"
	"pharmastock/internal/core/clock"
	"pharmastock/internal/core/id"
	"pharmastock/internal/core/types"
	"pharmastock/internal/domain/catalog"
	"pharmastock/internal/domain/lots"
	"pharmastock/internal/infrastructure/storage/memory"
	"pharmastock/pkg/logger"
)

var now = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*app.Service, *memory.Store, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(now)
	mem := memory.New()
	svc := app.New(app.Backend{
		Lots:      mem,
		Products:  mem,
		Groups:    mem,
		TxManager: mem,
		Audit:     memory.NewAuditLog(),
	}, app.Options{Clock: clk})
	return svc, mem, clk
}

func TestConfigFrom(t *testing.T) {
	lid := id.New()
	cfg := &config.Config{
		App:    config.AppConfig{SessionTTL: time.Hour},
		Alerts: config.AlertsConfig{ScanSchedule: "*/15 * * * *", Locations: []string{lid.String()}},
	}

	out, err := ConfigFrom(cfg, true)
	require.NoError(t, err)
	assert.Equal(t, []id.ID{lid}, out.Locations)
	assert.Equal(t, "@every 5m", out.ExpirySchedule)
	assert.Equal(t, time.Hour, out.SessionTTL)

	out, err = ConfigFrom(cfg, false)
	require.NoError(t, err)
	assert.Empty(t, out.ExpirySchedule)

	cfg.Alerts.Locations = append(cfg.Alerts.Locations, "front-desk")
	_, err = ConfigFrom(cfg, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "front-desk")
}

func TestScanAlerts_FillsCache(t *testing.T) {
	svc, mem, _ := newService(t)
	stocked, empty := id.New(), id.New()

	p := mem.SeedProduct(stocked, "Amoxicillin 500mg", catalog.ProductTypeMedicine)
	mem.PutBatch(lots.Batch{
		ProductID: p.ID, LocationID: stocked,
		QuantityReceived: 3, QuantityAvailable: 3,
		SRP: types.MustMoney("4.50"), ExpirationDate: now.AddDate(1, 0, 0), EntryDate: now,
	})

	s := New(Config{ScanSchedule: "@every 1m", Locations: []id.ID{stocked, empty}}, svc, logger.NewNop())
	assert.Equal(t, 2, s.ScanAlerts(context.Background()))

	a, ok := svc.Cache.Get(stocked)
	require.True(t, ok)
	require.Len(t, a.LowStock, 1)
	assert.Equal(t, p.ID, a.LowStock[0].ProductID)

	a, ok = svc.Cache.Get(empty)
	require.True(t, ok)
	assert.Empty(t, a.LowStock)
}

func TestExpireSessions(t *testing.T) {
	svc, _, clk := newService(t)
	ctx := context.Background()
	lid := id.New()

	stale, err := svc.OpenSession(ctx, lid)
	require.NoError(t, err)
	clk.Advance(3 * time.Hour)
	fresh, err := svc.OpenSession(ctx, lid)
	require.NoError(t, err)
	clk.Advance(90 * time.Minute)

	s := New(Config{ExpirySchedule: "@every 5m", SessionTTL: 2 * time.Hour}, svc, nil)
	assert.Equal(t, 1, s.ExpireSessions(ctx))

	_, err = svc.Session(ctx, stale.ID)
	assert.Error(t, err)
	_, err = svc.Session(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	svc, _, _ := newService(t)
	s := New(Config{ScanSchedule: "every now and then", Locations: []id.ID{id.New()}}, svc, nil)
	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alert scan")
}

func TestStartStop(t *testing.T) {
	svc, _, _ := newService(t)
	s := New(Config{ScanSchedule: "@every 1h", Locations: []id.ID{id.New()}, ExpirySchedule: "@every 1h", SessionTTL: time.Hour}, svc, nil)
	require.NoError(t, s.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestScanAlerts_LogsThroughContextLogger(t *testing.T) {
	svc, _, _ := newService(t)
	lid := id.New()

	core, logs := observer.New(zapcore.InfoLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	s := New(Config{Locations: []id.ID{lid}}, svc, log)
	require.Equal(t, 1, s.ScanAlerts(context.Background()))

	entries := logs.FilterMessage("alert scan finished").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "scheduler", fields["component"])
	assert.Equal(t, lid.String(), fields["location_id"])
	assert.Contains(t, fields, "took")
}
