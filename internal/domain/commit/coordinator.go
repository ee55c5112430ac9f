package commit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pharmastock/internal/core/apperror"
	"pharmastock/internal/core/clock"
	appctx "pharmastock/internal/core/context"
	"pharmastock/internal/core/id"
	"pharmastock/internal/core/numerator"
	"pharmastock/internal/domain/catalog"
	"pharmastock/internal/domain/lots"
	"pharmastock/internal/domain/staging"
	"pharmastock/pkg/logger"
)

var tracer = otel.Tracer("pharmastock/commit")

// Ledger is the part of a staging ledger the coordinator drives.
type Ledger interface {
	LocationID() id.ID
	BatchReference() string
	Queued() []staging.Entry
	MarkCommitted(tempID string) error
	MarkFailed(tempID string, f staging.Failure) error
	Rotate(next string)
}

var _ Ledger = (*staging.Ledger)(nil)

// Coordinator commits staged entries.
type Coordinator struct {
	lots      *lots.Store
	products  staging.ProductLookup
	group     catalog.GroupWriter
	numerator numerator.Generator
	audit     AuditSink
	clock     clock.Clock
}

// NewCoordinator creates a commit coordinator. audit may be nil.
func NewCoordinator(
	lotStore *lots.Store,
	products staging.ProductLookup,
	group catalog.GroupWriter,
	gen numerator.Generator,
	audit AuditSink,
) *Coordinator {
	return &Coordinator{
		lots:      lotStore,
		products:  products,
		group:     group,
		numerator: gen,
		audit:     audit,
		clock:     lotStore.Clock(),
	}
}

// Commit writes every queued entry of ledger under batchRef (the ledger's
// current reference when empty).
//
// Once started the round runs to completion even if ctx is cancelled.
// Succeeded entries leave the ledger, failed ones stay as failed, and the
// ledger always moves to a fresh batch reference.
func (c *Coordinator) Commit(ctx context.Context, ledger Ledger, batchRef string) (*Report, error) {
	if batchRef == "" {
		batchRef = ledger.BatchReference()
	}
	if batchRef == "" {
		return nil, apperror.NewFieldValidation("batchReference", "batch reference is required")
	}

	ctx = context.WithoutCancel(ctx)
	ctx, span := tracer.Start(ctx, "commit.round",
		trace.WithAttributes(
			attribute.String("batch.reference", batchRef),
			attribute.String("location.id", ledger.LocationID().String()),
		))
	defer span.End()

	entries := ledger.Queued()
	report := &Report{
		BatchReference: batchRef,
		LocationID:     ledger.LocationID(),
		Succeeded:      []string{},
		Failed:         []EntryFailure{},
		Lots:           []CreatedLot{},
		StartedAt:      c.clock.Now(),
	}

	order := make(map[string]int, len(entries))
	var stockAdds, newProducts []staging.Entry
	for i, e := range entries {
		order[e.TempID] = i
		switch e.Kind {
		case staging.KindStockAdd:
			stockAdds = append(stockAdds, e)
		default:
			newProducts = append(newProducts, e)
		}
	}

	for _, e := range stockAdds {
		lot, err := c.commitStockAdd(ctx, ledger.LocationID(), batchRef, e)
		if err != nil {
			report.fail(e, err)
			continue
		}
		report.succeed(e, lot, false)
	}

	c.commitNewProducts(ctx, ledger.LocationID(), batchRef, newProducts, report)

	report.sort(order)
	report.resolveOutcome()

	for _, tempID := range report.Succeeded {
		if err := ledger.MarkCommitted(tempID); err != nil {
			logger.Warn(ctx, "mark committed failed", "temp_id", tempID, "error", err)
		}
	}
	for _, f := range report.Failed {
		if err := ledger.MarkFailed(f.TempID, staging.Failure{Code: f.Code, Reason: f.Reason}); err != nil {
			logger.Warn(ctx, "mark failed failed", "temp_id", f.TempID, "error", err)
		}
	}

	report.NextBatchReference = c.nextReference(ctx, batchRef)
	ledger.Rotate(report.NextBatchReference)
	report.FinishedAt = c.clock.Now()

	span.SetAttributes(
		attribute.Int("commit.succeeded", len(report.Succeeded)),
		attribute.Int("commit.failed", len(report.Failed)),
		attribute.String("commit.outcome", string(report.Outcome)),
	)

	logger.Info(ctx, "commit round finished",
		"batch_reference", batchRef,
		"outcome", report.Outcome,
		"succeeded", len(report.Succeeded),
		"failed", len(report.Failed),
		"next_batch_reference", report.NextBatchReference,
	)

	c.recordAudit(ctx, report)

	return report, nil
}

func (c *Coordinator) commitStockAdd(ctx context.Context, locationID id.ID, batchRef string, e staging.Entry) (*lots.Batch, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	product, err := c.products.GetByID(ctx, e.ProductID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewInsufficientContext("product does not exist").
				WithDetail("product_id", e.ProductID.String())
		}
		return nil, err
	}
	if !product.IsActive() || product.LocationID != locationID {
		return nil, apperror.NewInsufficientContext("product is not stocked at this location").
			WithDetail("product_id", e.ProductID.String())
	}

	return c.lots.CreateBatch(ctx, lots.NewBatch{
		ProductID:      e.ProductID,
		LocationID:     locationID,
		Quantity:       e.Pieces,
		UnitCost:       e.UnitCost,
		SRP:            e.SRP,
		ExpirationDate: e.ExpirationDate,
		BatchReference: batchRef,
	})
}

// commitNewProducts validates each entry on its own, then writes the valid
// ones as a single group. A group failure fails only the group's entries.
func (c *Coordinator) commitNewProducts(ctx context.Context, locationID id.ID, batchRef string, entries []staging.Entry, report *Report) {
	var (
		items   []catalog.ProductWithLot
		members []staging.Entry
	)
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			report.fail(e, err)
			continue
		}

		product := catalog.NewProduct(locationID, *e.Product, c.clock.Now())
		lot, err := c.lots.Prepare(ctx, lots.NewBatch{
			ProductID:      product.ID,
			LocationID:     locationID,
			Quantity:       e.Pieces,
			UnitCost:       e.UnitCost,
			SRP:            e.SRP,
			ExpirationDate: e.ExpirationDate,
			BatchReference: batchRef,
		})
		if err != nil {
			report.fail(e, err)
			continue
		}
		items = append(items, catalog.ProductWithLot{Product: product, Lot: lot})
		members = append(members, e)
	}
	if len(items) == 0 {
		return
	}

	if err := c.group.CreateProductsWithLots(ctx, items); err != nil {
		logger.Warn(ctx, "new product group rejected",
			"batch_reference", batchRef,
			"entries", len(members),
			"error", err,
		)
		for _, e := range members {
			report.fail(e, err)
		}
		return
	}

	for i, e := range members {
		report.succeed(e, items[i].Lot, true)
	}
}

func (c *Coordinator) nextReference(ctx context.Context, current string) string {
	next, err := c.numerator.Next(ctx, c.clock.Now())
	if err != nil {
		logger.Error(ctx, "batch reference generation failed", "error", err)
		next = ""
	}
	if next == "" || next == current {
		next = fmt.Sprintf("%s-%s", current, id.New().String()[:8])
	}
	return next
}

func (c *Coordinator) recordAudit(ctx context.Context, report *Report) {
	if c.audit == nil {
		return
	}
	payload, err := json.Marshal(report)
	if err != nil {
		logger.Warn(ctx, "commit audit encode failed", "error", err)
		return
	}
	rec := AuditRecord{
		ID:             id.New(),
		BatchReference: report.BatchReference,
		LocationID:     report.LocationID,
		OperatorID:     appctx.GetOperatorID(ctx),
		Outcome:        report.Outcome,
		Report:         payload,
		CreatedAt:      report.FinishedAt.UTC(),
	}
	if err := c.audit.RecordCommit(ctx, rec); err != nil {
		logger.Warn(ctx, "commit audit not recorded", "batch_reference", report.BatchReference, "error", err)
	}
}

func (r *Report) succeed(e staging.Entry, lot *lots.Batch, newProduct bool) {
	r.Succeeded = append(r.Succeeded, e.TempID)
	r.Lots = append(r.Lots, CreatedLot{
		TempID:     e.TempID,
		ProductID:  lot.ProductID,
		BatchID:    lot.ID,
		Quantity:   lot.QuantityReceived,
		NewProduct: newProduct,
	})
}

func (r *Report) fail(e staging.Entry, err error) {
	r.Failed = append(r.Failed, EntryFailure{
		TempID: e.TempID,
		Kind:   e.Kind,
		Code:   failureCode(err),
		Reason: apperror.Message(err),
	})
}

// failureCode maps an error onto the per-entry taxonomy. Anything that is not
// a local validation or referential problem counts as a store rejection.
func failureCode(err error) string {
	switch code := apperror.CodeOf(err); code {
	case apperror.CodeValidation, apperror.CodeInsufficientContext:
		return code
	default:
		return apperror.CodePersistence
	}
}

func (r *Report) sort(order map[string]int) {
	sort.SliceStable(r.Succeeded, func(i, j int) bool {
		return order[r.Succeeded[i]] < order[r.Succeeded[j]]
	})
	sort.SliceStable(r.Failed, func(i, j int) bool {
		return order[r.Failed[i].TempID] < order[r.Failed[j].TempID]
	})
	sort.SliceStable(r.Lots, func(i, j int) bool {
		return order[r.Lots[i].TempID] < order[r.Lots[j].TempID]
	})
}
