// Package lot_repo provides the PostgreSQL lots repository.
package lot_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmastock/internal/core/apperror"
	"pharmastock/internal/core/id"
	"pharmastock/internal/core/types"
	"pharmastock/internal/domain/lots"
	"pharmastock/internal/infrastructure/storage/postgres"
)

const batchesTable = "batches"

// LotRepo implements lots.Repository.
type LotRepo struct {
	postgres.Table[lots.Batch]
}

// NewLotRepo creates a new lots repository.
func NewLotRepo(txManager *postgres.TxManager) *LotRepo {
	return &LotRepo{Table: postgres.NewTable[lots.Batch](txManager, batchesTable, "batch")}
}

var _ lots.Repository = (*LotRepo)(nil)

// CreateBatch implements lots.Repository.
func (r *LotRepo) CreateBatch(ctx context.Context, b *lots.Batch) error {
	return r.Insert(ctx, b)
}

// GetBatch implements lots.Repository.
func (r *LotRepo) GetBatch(ctx context.Context, batchID id.ID) (*lots.Batch, error) {
	return r.GetByID(ctx, batchID)
}

func (r *LotRepo) fifoSelect(productID, locationID id.ID) squirrel.SelectBuilder {
	return r.Select().
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Eq{"location_id": locationID}).
		OrderBy("entry_date", "id")
}

// ListBatches implements lots.Repository.
func (r *LotRepo) ListBatches(ctx context.Context, productID, locationID id.ID) ([]lots.Batch, error) {
	return r.SelectMany(ctx, r.fifoSelect(productID, locationID))
}

// ListBatchesForUpdate implements lots.Repository. The row locks are held
// until the transaction in ctx ends, so it must be called inside one.
func (r *LotRepo) ListBatchesForUpdate(ctx context.Context, productID, locationID id.ID) ([]lots.Batch, error) {
	if r.TxManager.GetTx(ctx) == nil {
		return nil, apperror.NewPersistence("lot lock requires a transaction", postgres.ErrNoTransaction)
	}
	return r.SelectMany(ctx, r.fifoSelect(productID, locationID).Suffix("FOR UPDATE"))
}

// DecrementBatch implements lots.Repository. The guard in the WHERE clause
// makes the check and the write one statement.
func (r *LotRepo) DecrementBatch(ctx context.Context, batchID id.ID, amount types.Quantity) (*lots.Batch, error) {
	sql, args, err := r.decrementQuery(batchID, amount).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}

	var updated lots.Batch
	err = pgxscan.Get(ctx, r.Querier(ctx), &updated, sql, args...)
	if err == nil {
		return &updated, nil
	}
	if !pgxscan.NotFound(err) {
		return nil, postgres.MapError(err, "batch", "decrement lot")
	}

	// Nothing updated: the lot is missing or too small.
	current, getErr := r.GetByID(ctx, batchID)
	if getErr != nil {
		return nil, getErr
	}
	return nil, apperror.NewInsufficientLotQuantity(batchID.String(), amount.Int64(), current.QuantityAvailable.Int64())
}

func (r *LotRepo) decrementQuery(batchID id.ID, amount types.Quantity) squirrel.UpdateBuilder {
	return r.Builder().
		Update(batchesTable).
		Set("quantity_available", squirrel.Expr("quantity_available - ?", amount)).
		Where(squirrel.Eq{"id": batchID}).
		Where(squirrel.GtOrEq{"quantity_available": amount}).
		Suffix("RETURNING " + strings.Join(r.SelectCols, ", "))
}
