package catalog

import (
	"context"

	"pharmastock/internal/core/id"
	"pharmastock/internal/domain/lots"
)

// Repository is the product side of the persistence service.
type Repository interface {
	// GetByID returns the product or an apperror NOT_FOUND.
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// ListByLocation returns the active products of a location ordered by name.
	ListByLocation(ctx context.Context, locationID id.ID) ([]Product, error)

	// Create inserts one product. Barcode must be unique when present.
	Create(ctx context.Context, p *Product) error

	// Archive hides a product from listings and new stock. Its lots are kept.
	Archive(ctx context.Context, productID id.ID) error
}

// ProductWithLot pairs a new product with the lot that first stocks it.
type ProductWithLot struct {
	Product *Product
	Lot     *lots.Batch
}

// GroupWriter persists a group of new products together with their first lots
// in a single request. Either every item is written or none is.
type GroupWriter interface {
	CreateProductsWithLots(ctx context.Context, items []ProductWithLot) error
}
