package lots

import (
	"context"
	"fmt"
	"time"

	"pharmastock/internal/core/apperror"
	"pharmastock/internal/core/clock"
	appctx "pharmastock/internal/core/context"
	"pharmastock/internal/core/id"
	"pharmastock/internal/core/types"
	"pharmastock/pkg/logger"
)

// Store exposes lot creation, query and availability mutation.
type Store struct {
	repo  Repository
	clock clock.Clock
}

// NewStore creates a lot store.
func NewStore(repo Repository, c clock.Clock) *Store {
	if c == nil {
		c = clock.NewSystem(nil)
	}
	return &Store{repo: repo, clock: c}
}

// Clock returns the clock the store uses for entry dates and expiry checks.
func (s *Store) Clock() clock.Clock {
	return s.clock
}

// Prepare validates input and builds a lot ready to be written, without
// touching the repository. Used when lots are persisted as part of a group.
func (s *Store) Prepare(ctx context.Context, in NewBatch) (*Batch, error) {
	if id.IsNil(in.ProductID) {
		return nil, apperror.NewFieldValidation("productId", "product is required")
	}
	if id.IsNil(in.LocationID) {
		return nil, apperror.NewFieldValidation("locationId", "location is required")
	}
	if !in.Quantity.IsPositive() {
		return nil, apperror.NewFieldValidation("quantity", "quantity must be greater than zero").
			WithDetail("value", in.Quantity.Int64())
	}
	if !in.SRP.IsPositive() {
		return nil, apperror.NewFieldValidation("srp", "selling price must be greater than zero").
			WithDetail("value", in.SRP.String())
	}
	if in.UnitCost.IsNegative() {
		return nil, apperror.NewFieldValidation("unitCost", "unit cost cannot be negative")
	}
	if in.ExpirationDate == nil || in.ExpirationDate.IsZero() {
		return nil, apperror.NewFieldValidation("expirationDate", "expiration date is required")
	}

	entryBy := in.EntryBy
	if entryBy == "" {
		entryBy = appctx.GetOperatorID(ctx)
	}

	return &Batch{
		ID:                id.New(),
		ProductID:         in.ProductID,
		LocationID:        in.LocationID,
		BatchReference:    in.BatchReference,
		QuantityReceived:  in.Quantity,
		QuantityAvailable: in.Quantity,
		UnitCost:          in.UnitCost,
		SRP:               in.SRP,
		ExpirationDate:    types.DateOnly(*in.ExpirationDate),
		EntryDate:         s.clock.Now().UTC(),
		EntryBy:           entryBy,
	}, nil
}

// CreateBatch validates and persists a new lot.
func (s *Store) CreateBatch(ctx context.Context, in NewBatch) (*Batch, error) {
	b, err := s.Prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateBatch(ctx, b); err != nil {
		return nil, asPersistence("create batch", err)
	}

	logger.Info(ctx, "lot created",
		"batch_id", b.ID,
		"product_id", b.ProductID,
		"location_id", b.LocationID,
		"quantity", b.QuantityReceived,
		"batch_reference", b.BatchReference,
	)

	return b, nil
}

// ListBatches returns every lot of a product at a location in consumption
// order (entry date ascending, then id).
func (s *Store) ListBatches(ctx context.Context, productID, locationID id.ID) ([]Batch, error) {
	batches, err := s.repo.ListBatches(ctx, productID, locationID)
	if err != nil {
		return nil, asPersistence("list batches", err)
	}
	SortFIFO(batches)
	return batches, nil
}

// ListBatchesForUpdate is ListBatches with row locks held by the caller's
// transaction.
func (s *Store) ListBatchesForUpdate(ctx context.Context, productID, locationID id.ID) ([]Batch, error) {
	batches, err := s.repo.ListBatchesForUpdate(ctx, productID, locationID)
	if err != nil {
		return nil, asPersistence("lock batches", err)
	}
	SortFIFO(batches)
	return batches, nil
}

// DecrementAvailable consumes amount pieces from one lot.
func (s *Store) DecrementAvailable(ctx context.Context, batchID id.ID, amount types.Quantity) (*Batch, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewFieldValidation("amount", "amount must be greater than zero").
			WithDetail("batch_id", batchID.String())
	}

	b, err := s.repo.DecrementBatch(ctx, batchID, amount)
	if err != nil {
		return nil, asPersistence("decrement batch", err)
	}
	return b, nil
}

// AggregateQuantity returns the on-hand quantity: available pieces over lots
// that have not expired.
func (s *Store) AggregateQuantity(ctx context.Context, productID, locationID id.ID) (types.Quantity, error) {
	batches, err := s.ListBatches(ctx, productID, locationID)
	if err != nil {
		return 0, err
	}
	return Available(batches, s.Today()), nil
}

// LastKnownPrice returns the srp of the most recently entered lot.
func (s *Store) LastKnownPrice(ctx context.Context, productID, locationID id.ID) (types.Money, bool, error) {
	batches, err := s.ListBatches(ctx, productID, locationID)
	if err != nil {
		return types.Zero(), false, err
	}
	for i := len(batches) - 1; i >= 0; i-- {
		if batches[i].SRP.IsPositive() {
			return batches[i].SRP, true, nil
		}
	}
	return types.Zero(), false, nil
}

// Today is the current calendar day of the store's clock.
func (s *Store) Today() time.Time {
	return clock.Today(s.clock)
}

// asPersistence keeps domain errors as they are and wraps anything else
// coming from the repository as a persistence failure.
func asPersistence(op string, err error) error {
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}
	return apperror.NewPersistence(op+" failed", fmt.Errorf("%s: %w", op, err))
}
