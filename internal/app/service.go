// Package app wires the ledger components into the surface used by the HTTP
// API and the background worker.
package app

import (
	"context"
	"fmt"

	"pharmastock/internal/core/apperror"
	appctx "pharmastock/internal/core/context"
	"pharmastock/internal/core/id"
	"pharmastock/internal/core/types"
	"pharmastock/internal/domain/alerts"
	"pharmastock/internal/domain/catalog"
	"pharmastock/internal/domain/commit"
	"pharmastock/internal/domain/fifo"
	"pharmastock/internal/domain/lots"
	"pharmastock/internal/domain/monitor"
	"pharmastock/internal/domain/session"
	"pharmastock/internal/domain/settings"
	"pharmastock/internal/domain/staging"
	"pharmastock/pkg/logger"
)

// Deps are the collaborators of Service.
type Deps struct {
	Lots        *lots.Store
	Products    catalog.Repository
	Engine      *fifo.Engine
	Monitor     *monitor.Monitor
	Aggregator  *alerts.Aggregator
	Cache       *alerts.Cache
	Coordinator *commit.Coordinator
	Sessions    *session.Registry
	Settings    settings.Provider

	// History is nil when the audit sink cannot be read back.
	History commit.AuditReader
}

// Service is the caller-facing API of the ledger.
type Service struct {
	Deps
}

// NewService creates the application service.
func NewService(d Deps) *Service {
	if d.Cache == nil {
		d.Cache = alerts.NewCache()
	}
	return &Service{Deps: d}
}

// OpenSession starts a staging session at a location.
func (s *Service) OpenSession(ctx context.Context, locationID id.ID) (*session.Session, error) {
	if err := checkLocation(ctx, locationID); err != nil {
		return nil, err
	}
	return s.Sessions.Open(ctx, locationID)
}

// Session returns an open session the caller may use.
func (s *Service) Session(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := s.Sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if err := checkLocation(ctx, sess.LocationID); err != nil {
		return nil, err
	}
	return sess, nil
}

// CloseSession discards a session.
func (s *Service) CloseSession(ctx context.Context, sessionID string) error {
	if _, err := s.Session(ctx, sessionID); err != nil {
		return err
	}
	return s.Sessions.Close(sessionID)
}

// EnqueueStockAdd stages a new lot for an existing product.
func (s *Service) EnqueueStockAdd(ctx context.Context, sessionID string, in staging.StockAddInput) (string, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return sess.Ledger.EnqueueStockAdd(ctx, in)
}

// EnqueueNewProduct stages a new product with its first lot.
func (s *Service) EnqueueNewProduct(ctx context.Context, sessionID string, in staging.NewProductInput) (string, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return sess.Ledger.EnqueueNewProduct(ctx, in)
}

// RemoveStaged drops a staged entry.
func (s *Service) RemoveStaged(ctx context.Context, sessionID, tempID string) error {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	return sess.Ledger.Remove(tempID)
}

// RequeueStaged puts a failed entry back in the queue.
func (s *Service) RequeueStaged(ctx context.Context, sessionID, tempID string) error {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	return sess.Ledger.Requeue(tempID)
}

// ClearStaged drops every staged entry of a session.
func (s *Service) ClearStaged(ctx context.Context, sessionID string) error {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	sess.Ledger.Clear()
	return nil
}

// ListStaged returns the staged entries of a session in insertion order.
func (s *Service) ListStaged(ctx context.Context, sessionID string) ([]staging.Entry, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Ledger.List(), nil
}

// Commit writes a session's queued entries. batchRef may be empty to use the
// session's current reference.
func (s *Service) Commit(ctx context.Context, sessionID, batchRef string) (*commit.Report, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if batchRef != "" && batchRef != sess.Ledger.BatchReference() {
		return nil, apperror.NewConflict("batch reference does not match the session's current round").
			WithDetail("expected", sess.Ledger.BatchReference()).
			WithDetail("got", batchRef)
	}

	report, err := s.Coordinator.Commit(ctx, sess.Ledger, batchRef)
	if err != nil {
		return nil, err
	}
	if len(report.Succeeded) > 0 {
		s.Cache.Invalidate(sess.LocationID)
	}
	return report, nil
}

// Classify evaluates one product against the current thresholds.
func (s *Service) Classify(ctx context.Context, productID, locationID id.ID) (monitor.Status, error) {
	if err := checkLocation(ctx, locationID); err != nil {
		return monitor.Status{}, err
	}
	th, err := s.Settings.Thresholds(ctx)
	if err != nil {
		return monitor.Status{}, fmt.Errorf("load thresholds: %w", err)
	}
	return s.Monitor.Classify(ctx, productID, locationID, th)
}

// BuildAlerts classifies the given products against the current thresholds.
func (s *Service) BuildAlerts(ctx context.Context, products []catalog.Product) (*alerts.Alerts, error) {
	th, err := s.Settings.Thresholds(ctx)
	if err != nil {
		return nil, fmt.Errorf("load thresholds: %w", err)
	}
	return s.Aggregator.BuildAlerts(ctx, products, th)
}

// ScanLocation builds alerts for every active product of a location and
// stores them in the cache.
func (s *Service) ScanLocation(ctx context.Context, locationID id.ID) (*alerts.Alerts, error) {
	if err := checkLocation(ctx, locationID); err != nil {
		return nil, err
	}
	products, err := s.Products.ListByLocation(ctx, locationID)
	if err != nil {
		return nil, apperror.NewPersistence("list products failed", err)
	}
	a, err := s.BuildAlerts(ctx, products)
	if err != nil {
		return nil, err
	}
	s.Cache.Put(locationID, a)
	return a, nil
}

// CachedAlerts returns the last scan of a location, if any.
func (s *Service) CachedAlerts(ctx context.Context, locationID id.ID) (*alerts.Alerts, bool, error) {
	if err := checkLocation(ctx, locationID); err != nil {
		return nil, false, err
	}
	a, ok := s.Cache.Get(locationID)
	return a, ok, nil
}

// CommitHistory returns the latest commit rounds audited at a location.
func (s *Service) CommitHistory(ctx context.Context, locationID id.ID, limit int) ([]commit.AuditRecord, error) {
	if err := checkLocation(ctx, locationID); err != nil {
		return nil, err
	}
	if s.History == nil {
		return []commit.AuditRecord{}, nil
	}
	records, err := s.History.History(ctx, locationID, limit)
	if err != nil {
		return nil, apperror.NewPersistence("read commit history failed", err)
	}
	return records, nil
}

// ArchiveProduct retires a product of a location. Its lots stay in the ledger
// but it no longer appears in alerts or accepts stock.
func (s *Service) ArchiveProduct(ctx context.Context, productID, locationID id.ID) error {
	if err := checkLocation(ctx, locationID); err != nil {
		return err
	}
	p, err := s.Products.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if p.LocationID != locationID {
		return apperror.NewNotFound("product", productID.String())
	}
	if err := s.Products.Archive(ctx, productID); err != nil {
		return err
	}
	s.Cache.Invalidate(locationID)
	logger.Info(ctx, "product archived", "product_id", productID, "location_id", locationID)
	return nil
}

// Consume deducts a sold quantity, oldest lot first.
func (s *Service) Consume(ctx context.Context, productID, locationID id.ID, qty types.Quantity) ([]fifo.Allocation, error) {
	if err := checkLocation(ctx, locationID); err != nil {
		return nil, err
	}
	allocs, err := s.Engine.Consume(ctx, productID, locationID, qty)
	if err != nil {
		return nil, err
	}
	s.Cache.Invalidate(locationID)
	return allocs, nil
}

// ListBatches returns a product's lots in consumption order.
func (s *Service) ListBatches(ctx context.Context, productID, locationID id.ID) ([]lots.Batch, error) {
	if err := checkLocation(ctx, locationID); err != nil {
		return nil, err
	}
	return s.Lots.ListBatches(ctx, productID, locationID)
}

// checkLocation rejects operators restricted to other locations. Calls
// without an operator (the worker, tests) are not restricted.
func checkLocation(ctx context.Context, locationID id.ID) error {
	if appctx.GetOperator(ctx) == nil {
		return nil
	}
	if !appctx.HasLocationAccess(ctx, locationID.String()) {
		return apperror.NewUnauthorized("operator has no access to this location").
			WithDetail("location_id", locationID.String())
	}
	return nil
}
