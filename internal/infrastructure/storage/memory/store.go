// Package memory provides an in-process implementation of the persistence
// service. It backs the development server (STORAGE_DRIVER=memory) and the
// domain test suites.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"pharmastock/internal/core/apperror"
	"pharmastock/internal/core/id"
	"pharmastock/internal/core/tx"
	"pharmastock/internal/core/types"
	"pharmastock/internal/domain/catalog"
	"pharmastock/internal/domain/lots"
)

// Store keeps products and lots in maps guarded by a mutex.
//
// Transactions are serialized. Each one keeps an undo log of its own writes,
// so a failed unit of work is reverted without touching writes made outside it.
type Store struct {
	mu       sync.Mutex
	products map[id.ID]catalog.Product
	barcodes map[string]id.ID
	batches  map[id.ID]lots.Batch

	txMu sync.Mutex

	// Hooks let tests inject persistence failures. A non-nil error returned by
	// a hook is returned by the corresponding call before anything is written.
	OnCreateBatch   func(b *lots.Batch) error
	OnCreateGroup   func(items []catalog.ProductWithLot) error
	OnListBatches   func(productID id.ID) error
	OnDecrementHook func(batchID id.ID, amount types.Quantity) error
}

// New creates an empty store.
func New() *Store {
	return &Store{
		products: make(map[id.ID]catalog.Product),
		barcodes: make(map[string]id.ID),
		batches:  make(map[id.ID]lots.Batch),
	}
}

type txKey struct{}

// undoLog holds compensating steps for the writes of one transaction. Steps
// run with s.mu held, newest first.
type undoLog struct {
	steps []func()
}

func undoFrom(ctx context.Context) *undoLog {
	u, _ := ctx.Value(txKey{}).(*undoLog)
	return u
}

// recordLocked registers step on the transaction carried by ctx, if any.
func recordLocked(ctx context.Context, step func()) {
	if u := undoFrom(ctx); u != nil {
		u.steps = append(u.steps, step)
	}
}

// RunInTransaction implements tx.Manager.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if undoFrom(ctx) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	u := &undoLog{}
	if err := fn(context.WithValue(ctx, txKey{}, u)); err != nil {
		s.mu.Lock()
		for i := len(u.steps) - 1; i >= 0; i-- {
			u.steps[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// --- lots.Repository ---

// CreateBatch implements lots.Repository.
func (s *Store) CreateBatch(ctx context.Context, b *lots.Batch) error {
	if s.OnCreateBatch != nil {
		if err := s.OnCreateBatch(b); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[b.ProductID]; !ok {
		return apperror.NewInsufficientContext("product does not exist").
			WithDetail("product_id", b.ProductID.String())
	}
	if _, exists := s.batches[b.ID]; exists {
		return apperror.NewDuplicate("batch", "id", b.ID.String())
	}
	s.insertBatchLocked(ctx, *b)
	return nil
}

// GetBatch implements lots.Repository.
func (s *Store) GetBatch(_ context.Context, batchID id.ID) (*lots.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[batchID]
	if !ok {
		return nil, apperror.NewNotFound("batch", batchID.String())
	}
	return &b, nil
}

// ListBatches implements lots.Repository. Lots are returned newest first to
// keep callers honest about imposing their own order.
func (s *Store) ListBatches(_ context.Context, productID, locationID id.ID) ([]lots.Batch, error) {
	if s.OnListBatches != nil {
		if err := s.OnListBatches(productID); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]lots.Batch, 0)
	for _, b := range s.batches {
		if b.ProductID == productID && b.LocationID == locationID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return lots.FIFOLess(&out[j], &out[i])
	})
	return out, nil
}

// ListBatchesForUpdate implements lots.Repository. Locking is provided by the
// serialized transactions.
func (s *Store) ListBatchesForUpdate(ctx context.Context, productID, locationID id.ID) ([]lots.Batch, error) {
	return s.ListBatches(ctx, productID, locationID)
}

// DecrementBatch implements lots.Repository.
func (s *Store) DecrementBatch(ctx context.Context, batchID id.ID, amount types.Quantity) (*lots.Batch, error) {
	if s.OnDecrementHook != nil {
		if err := s.OnDecrementHook(batchID, amount); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[batchID]
	if !ok {
		return nil, apperror.NewNotFound("batch", batchID.String())
	}
	if amount > b.QuantityAvailable {
		return nil, apperror.NewInsufficientLotQuantity(batchID.String(), amount.Int64(), b.QuantityAvailable.Int64())
	}
	b.QuantityAvailable -= amount
	s.batches[batchID] = b
	recordLocked(ctx, func() {
		if cur, ok := s.batches[batchID]; ok {
			cur.QuantityAvailable += amount
			s.batches[batchID] = cur
		}
	})
	return &b, nil
}

// --- catalog.Repository ---

// GetByID implements catalog.Repository.
func (s *Store) GetByID(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	return &p, nil
}

// ListByLocation implements catalog.Repository.
func (s *Store) ListByLocation(_ context.Context, locationID id.ID) ([]catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]catalog.Product, 0)
	for _, p := range s.products {
		if p.LocationID == locationID && p.IsActive() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return id.Compare(out[i].ID, out[j].ID) < 0
	})
	return out, nil
}

// Create implements catalog.Repository.
func (s *Store) Create(ctx context.Context, p *catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertProductLocked(ctx, p)
}

// Archive soft-deletes a product.
func (s *Store) Archive(ctx context.Context, productID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return apperror.NewNotFound("product", productID.String())
	}
	prev := p.Status
	p.Status = catalog.StatusArchived
	s.products[productID] = p
	recordLocked(ctx, func() {
		if cur, ok := s.products[productID]; ok {
			cur.Status = prev
			s.products[productID] = cur
		}
	})
	return nil
}

func (s *Store) insertProductLocked(ctx context.Context, p *catalog.Product) error {
	productID := p.ID
	var key string
	if p.Barcode != nil {
		key = strings.TrimSpace(*p.Barcode)
		if _, taken := s.barcodes[key]; taken {
			return apperror.NewDuplicate("product", "barcode", key)
		}
		s.barcodes[key] = productID
	}
	s.products[productID] = *p
	recordLocked(ctx, func() {
		delete(s.products, productID)
		if key != "" && s.barcodes[key] == productID {
			delete(s.barcodes, key)
		}
	})
	return nil
}

func (s *Store) insertBatchLocked(ctx context.Context, b lots.Batch) {
	batchID := b.ID
	s.batches[batchID] = b
	recordLocked(ctx, func() { delete(s.batches, batchID) })
}

// --- catalog.GroupWriter ---

// CreateProductsWithLots implements catalog.GroupWriter.
func (s *Store) CreateProductsWithLots(ctx context.Context, items []catalog.ProductWithLot) error {
	if s.OnCreateGroup != nil {
		if err := s.OnCreateGroup(items); err != nil {
			return err
		}
	}

	return s.RunInTransaction(ctx, func(ctx context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		for _, item := range items {
			if err := s.insertProductLocked(ctx, item.Product); err != nil {
				return err
			}
			s.insertBatchLocked(ctx, *item.Lot)
		}
		return nil
	})
}

// BatchCount returns the number of stored lots.
func (s *Store) BatchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

// Compile-time interface checks.
var (
	_ lots.Repository     = (*Store)(nil)
	_ catalog.Repository  = (*Store)(nil)
	_ catalog.GroupWriter = (*Store)(nil)
	_ tx.Manager          = (*Store)(nil)
)
