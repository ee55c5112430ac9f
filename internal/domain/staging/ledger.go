package staging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pharmastock/internal/core/apperror"
	"pharmastock/internal/core/clock"
	"pharmastock/internal/core/id"
	"pharmastock/internal/core/types"
	"pharmastock/internal/domain/catalog"
	"pharmastock/pkg/logger"
)

// ProductLookup resolves the product a stock add refers to.
type ProductLookup interface {
	GetByID(ctx context.Context, productID id.ID) (*catalog.Product, error)
}

// PriceLookup returns the selling price of a product's most recent lot.
type PriceLookup interface {
	LastKnownPrice(ctx context.Context, productID, locationID id.ID) (types.Money, bool, error)
}

// NewProductInput describes a product to create together with its first lot.
type NewProductInput struct {
	Product        catalog.Definition `json:"product"`
	Quantity       QuantitySpec       `json:"quantity"`
	UnitCost       types.Money        `json:"unitCost"`
	SRP            types.Money        `json:"srp"`
	ExpirationDate *time.Time         `json:"expirationDate"`
}

// StockAddInput describes a new lot for an existing product. A nil SRP is
// replaced by the product's last known price.
type StockAddInput struct {
	ProductID      id.ID        `json:"productId"`
	Quantity       QuantitySpec `json:"quantity"`
	UnitCost       types.Money  `json:"unitCost"`
	SRP            *types.Money `json:"srp"`
	ExpirationDate *time.Time   `json:"expirationDate"`
}

// Ledger is the ordered queue of staged entries of one session.
//
// All lots committed from one round share the ledger's batch reference.
// The reference changes only through Rotate.
type Ledger struct {
	mu sync.Mutex

	locationID id.ID
	batchRef   string
	entries    []*Entry
	seq        int

	products ProductLookup
	prices   PriceLookup
	clock    clock.Clock
}

// NewLedger creates an empty ledger for a location.
func NewLedger(locationID id.ID, batchRef string, products ProductLookup, prices PriceLookup, c clock.Clock) *Ledger {
	if c == nil {
		c = clock.NewSystem(nil)
	}
	return &Ledger{
		locationID: locationID,
		batchRef:   batchRef,
		products:   products,
		prices:     prices,
		clock:      c,
	}
}

// LocationID returns the location the ledger stages stock for.
func (l *Ledger) LocationID() id.ID {
	return l.locationID
}

// BatchReference returns the reference the next commit will use.
func (l *Ledger) BatchReference() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.batchRef
}

// Rotate replaces the batch reference. Entries still in the ledger move to
// the new reference.
func (l *Ledger) Rotate(next string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.batchRef = next
	for _, e := range l.entries {
		e.BatchReference = next
	}
}

// EnqueueNewProduct validates and queues a new product definition.
func (l *Ledger) EnqueueNewProduct(ctx context.Context, in NewProductInput) (string, error) {
	if err := in.Product.Validate(); err != nil {
		return "", err
	}
	if in.Quantity.Mode == "" {
		in.Quantity.Mode = in.Product.ConfigurationMode
	}
	if in.Product.ConfigurationMode != in.Quantity.Mode {
		return "", apperror.NewFieldValidation("configurationMode", "quantity must be entered in the product's configuration mode")
	}

	pieces, err := in.Quantity.Resolve()
	if err != nil {
		return "", err
	}

	def := in.Product
	e := &Entry{
		Kind:           KindNewProduct,
		Product:        &def,
		Quantity:       in.Quantity,
		Pieces:         pieces,
		UnitCost:       in.UnitCost,
		SRP:            in.SRP,
		ExpirationDate: in.ExpirationDate,
	}
	if err := e.ValidateLot(); err != nil {
		return "", err
	}

	return l.push(ctx, e), nil
}

// EnqueueStockAdd validates and queues a new lot for an existing product.
func (l *Ledger) EnqueueStockAdd(ctx context.Context, in StockAddInput) (string, error) {
	if id.IsNil(in.ProductID) {
		return "", apperror.NewFieldValidation("productId", "product is required")
	}

	pieces, err := in.Quantity.Resolve()
	if err != nil {
		return "", err
	}

	product, err := l.products.GetByID(ctx, in.ProductID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return "", apperror.NewInsufficientContext("product does not exist").
				WithDetail("product_id", in.ProductID.String())
		}
		return "", fmt.Errorf("lookup product: %w", err)
	}
	if !product.IsActive() || product.LocationID != l.locationID {
		return "", apperror.NewInsufficientContext("product is not stocked at this location").
			WithDetail("product_id", in.ProductID.String())
	}

	var srp types.Money
	if in.SRP != nil {
		srp = *in.SRP
	} else {
		price, found, err := l.prices.LastKnownPrice(ctx, in.ProductID, l.locationID)
		if err != nil {
			return "", fmt.Errorf("lookup last price: %w", err)
		}
		if !found {
			return "", apperror.NewFieldValidation("srp", "selling price is required: product has no priced lot yet")
		}
		srp = price
	}

	e := &Entry{
		Kind:           KindStockAdd,
		ProductID:      in.ProductID,
		Quantity:       in.Quantity,
		Pieces:         pieces,
		UnitCost:       in.UnitCost,
		SRP:            srp,
		ExpirationDate: in.ExpirationDate,
	}
	if err := e.ValidateLot(); err != nil {
		return "", err
	}

	return l.push(ctx, e), nil
}

func (l *Ledger) push(ctx context.Context, e *Entry) string {
	if e.ExpirationDate != nil {
		d := types.DateOnly(*e.ExpirationDate)
		e.ExpirationDate = &d
	}

	l.mu.Lock()
	l.seq++
	e.TempID = fmt.Sprintf("tmp-%d", l.seq)
	e.State = StateQueued
	e.BatchReference = l.batchRef
	e.EnqueuedAt = l.clock.Now()
	l.entries = append(l.entries, e)
	l.mu.Unlock()

	logger.Debug(ctx, "entry staged",
		"temp_id", e.TempID,
		"kind", e.Kind,
		"pieces", e.Pieces,
	)
	return e.TempID
}

// Get returns a copy of one entry.
func (l *Ledger) Get(tempID string) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, e := l.find(tempID)
	if e == nil {
		return Entry{}, apperror.NewNotFound("staged entry", tempID)
	}
	return e.clone(), nil
}

// List returns copies of all entries in insertion order.
func (l *Ledger) List() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.clone())
	}
	return out
}

// Queued returns copies of the entries waiting for commit, in insertion order.
func (l *Ledger) Queued() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if e.State == StateQueued {
			out = append(out, e.clone())
		}
	}
	return out
}

// Len returns the number of entries in the ledger.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Remove drops a queued or failed entry.
func (l *Ledger) Remove(tempID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, e := l.find(tempID)
	if e == nil {
		return apperror.NewNotFound("staged entry", tempID)
	}
	if e.State != StateQueued && e.State != StateFailed {
		return apperror.NewInvalidState(fmt.Sprintf("entry %s is %s and cannot be removed", tempID, e.State)).
			WithDetail("temp_id", tempID)
	}
	e.State = StateRemoved
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return nil
}

// Clear drops every entry.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		e.State = StateRemoved
	}
	l.entries = nil
}

// Requeue puts a failed entry back in the queue for the next commit.
func (l *Ledger) Requeue(tempID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, e := l.find(tempID)
	if e == nil {
		return apperror.NewNotFound("staged entry", tempID)
	}
	if e.State != StateFailed {
		return apperror.NewInvalidState(fmt.Sprintf("entry %s is %s, only failed entries can be requeued", tempID, e.State)).
			WithDetail("temp_id", tempID)
	}
	e.State = StateQueued
	return nil
}

// MarkCommitted records a successful commit and drops the entry.
func (l *Ledger) MarkCommitted(tempID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, e := l.find(tempID)
	if e == nil {
		return apperror.NewNotFound("staged entry", tempID)
	}
	if e.State != StateQueued {
		return apperror.NewInvalidState(fmt.Sprintf("entry %s is %s and cannot be committed", tempID, e.State))
	}
	e.State = StateCommitted
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return nil
}

// MarkFailed records a failed commit attempt. The entry stays in the ledger.
func (l *Ledger) MarkFailed(tempID string, f Failure) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, e := l.find(tempID)
	if e == nil {
		return apperror.NewNotFound("staged entry", tempID)
	}
	if e.State != StateQueued {
		return apperror.NewInvalidState(fmt.Sprintf("entry %s is %s and cannot fail", tempID, e.State))
	}
	e.State = StateFailed
	e.Attempts++
	e.LastFailure = &f
	return nil
}

func (l *Ledger) find(tempID string) (int, *Entry) {
	for i, e := range l.entries {
		if e.TempID == tempID {
			return i, e
		}
	}
	return -1, nil
}
