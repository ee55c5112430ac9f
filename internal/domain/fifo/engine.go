// Package fifo consumes stock from a product's lots in first-in order.
package fifo

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pharmastock/internal/core/apperror"
	"pharmastock/internal/core/id"
	"pharmastock/internal/core/tx"
	"pharmastock/internal/core/types"
	"pharmastock/internal/domain/lots"
	"pharmastock/pkg/logger"
)

var tracer = otel.Tracer("pharmastock/fifo")

// Allocation is the quantity taken from one lot by a consumption.
type Allocation struct {
	BatchID  id.ID          `json:"batchId"`
	Quantity types.Quantity `json:"quantityTaken"`
}

// Total sums the quantity over allocations.
func Total(allocs []Allocation) types.Quantity {
	var sum types.Quantity
	for _, a := range allocs {
		sum += a.Quantity
	}
	return sum
}

// Engine deducts sold quantities from lots.
//
// A consumption is all-or-nothing: availability is verified under row locks
// before the first decrement and the whole walk runs in one transaction, so
// any failure leaves every lot as it was.
type Engine struct {
	store     *lots.Store
	txManager tx.Manager
}

// NewEngine creates a consumption engine.
func NewEngine(store *lots.Store, txManager tx.Manager) *Engine {
	if txManager == nil {
		txManager = tx.Passthrough
	}
	return &Engine{store: store, txManager: txManager}
}

// Consume takes qty pieces of a product at a location, oldest lot first.
func (e *Engine) Consume(ctx context.Context, productID, locationID id.ID, qty types.Quantity) ([]Allocation, error) {
	if !qty.IsPositive() {
		return nil, apperror.NewFieldValidation("quantity", "quantity must be greater than zero").
			WithDetail("value", qty.Int64())
	}

	ctx, span := tracer.Start(ctx, "fifo.consume",
		trace.WithAttributes(
			attribute.String("product.id", productID.String()),
			attribute.String("location.id", locationID.String()),
			attribute.Int64("quantity", qty.Int64()),
		))
	defer span.End()

	var allocs []Allocation
	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		batches, err := e.store.ListBatchesForUpdate(ctx, productID, locationID)
		if err != nil {
			return err
		}

		today := e.store.Today()
		plan, ok := Plan(batches, today, qty)
		if !ok {
			return apperror.NewInsufficientStock(productID.String(), qty.Int64(), lots.Available(batches, today).Int64()).
				WithDetail("location_id", locationID.String())
		}

		for _, a := range plan {
			if _, err := e.store.DecrementAvailable(ctx, a.BatchID, a.Quantity); err != nil {
				return fmt.Errorf("decrement lot %s: %w", a.BatchID, err)
			}
		}
		allocs = plan
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "stock consumed",
		"product_id", productID,
		"location_id", locationID,
		"quantity", qty,
		"lots", len(allocs),
	)

	return allocs, nil
}

// Plan picks quantities from batches, which must already be in FIFO order,
// without mutating anything. Exhausted and expired lots are skipped. ok is
// false when the sellable lots cannot cover qty.
func Plan(batches []lots.Batch, today time.Time, qty types.Quantity) (allocs []Allocation, ok bool) {
	remaining := qty
	for i := range batches {
		if remaining == 0 {
			break
		}
		b := &batches[i]
		if !b.IsSellable(today) {
			continue
		}
		take := types.Min(remaining, b.QuantityAvailable)
		allocs = append(allocs, Allocation{BatchID: b.ID, Quantity: take})
		remaining -= take
	}
	if remaining > 0 {
		return nil, false
	}
	return allocs, true
}
