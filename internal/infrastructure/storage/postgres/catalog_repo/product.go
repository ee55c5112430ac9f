// Package catalog_repo provides the PostgreSQL products repository.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"pharmastock/internal/core/apperror"
	"pharmastock/internal/core/id"
	"pharmastock/internal/domain/catalog"
	"pharmastock/internal/domain/lots"
	"pharmastock/internal/infrastructure/storage/postgres"
)

const (
	productsTable = "products"
	batchesTable  = "batches"
)

// ProductRepo implements catalog.Repository and catalog.GroupWriter.
type ProductRepo struct {
	products postgres.Table[catalog.Product]
	batches  postgres.Table[lots.Batch]
}

// NewProductRepo creates a new products repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		products: postgres.NewTable[catalog.Product](txManager, productsTable, "product"),
		batches:  postgres.NewTable[lots.Batch](txManager, batchesTable, "batch"),
	}
}

var (
	_ catalog.Repository  = (*ProductRepo)(nil)
	_ catalog.GroupWriter = (*ProductRepo)(nil)
)

// GetByID implements catalog.Repository.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	return r.products.GetByID(ctx, productID)
}

// ListByLocation implements catalog.Repository.
func (r *ProductRepo) ListByLocation(ctx context.Context, locationID id.ID) ([]catalog.Product, error) {
	q := r.products.Select().
		Where(squirrel.Eq{"location_id": locationID}).
		Where(squirrel.NotEq{"status": catalog.StatusArchived}).
		OrderBy("name", "id")
	return r.products.SelectMany(ctx, q)
}

// Create implements catalog.Repository.
func (r *ProductRepo) Create(ctx context.Context, p *catalog.Product) error {
	return r.products.Insert(ctx, p)
}

// Archive soft-deletes a product. Its lots are kept.
func (r *ProductRepo) Archive(ctx context.Context, productID id.ID) error {
	sql, args, err := r.products.Builder().
		Update(productsTable).
		Set("status", catalog.StatusArchived).
		Where(squirrel.Eq{"id": productID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.products.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "product", "archive product")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID.String())
	}
	return nil
}

// CreateProductsWithLots implements catalog.GroupWriter. Products and lots are
// copied in one transaction; a rejected row rolls back the whole group.
func (r *ProductRepo) CreateProductsWithLots(ctx context.Context, items []catalog.ProductWithLot) error {
	if len(items) == 0 {
		return nil
	}

	products := make([]*catalog.Product, 0, len(items))
	batches := make([]*lots.Batch, 0, len(items))
	for _, item := range items {
		products = append(products, item.Product)
		batches = append(batches, item.Lot)
	}

	return r.products.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.products.CopyRows(ctx, products); err != nil {
			return err
		}
		return r.batches.CopyRows(ctx, batches)
	})
}
