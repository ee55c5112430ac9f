package lots

import (
	"context"

	"pharmastock/internal/core/id"
	"pharmastock/internal/core/types"
)

// Repository is the lot side of the persistence service.
//
// Implementations may return lots in any order; Store imposes FIFO order.
type Repository interface {
	// CreateBatch inserts a fully populated lot.
	CreateBatch(ctx context.Context, b *Batch) error

	// GetBatch returns one lot or an apperror NOT_FOUND.
	GetBatch(ctx context.Context, batchID id.ID) (*Batch, error)

	// ListBatches returns every lot (exhausted included) of a product at a location.
	ListBatches(ctx context.Context, productID, locationID id.ID) ([]Batch, error)

	// ListBatchesForUpdate is ListBatches with the rows locked against
	// concurrent consumption until the surrounding transaction ends.
	ListBatchesForUpdate(ctx context.Context, productID, locationID id.ID) ([]Batch, error)

	// DecrementBatch lowers quantity_available by amount only if enough is
	// available, returning the updated lot. It returns an apperror
	// INSUFFICIENT_LOT_QUANTITY otherwise and leaves the lot untouched.
	DecrementBatch(ctx context.Context, batchID id.ID, amount types.Quantity) (*Batch, error)
}
