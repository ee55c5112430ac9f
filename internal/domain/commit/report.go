// Package commit turns a staging ledger into lots.
//
// A commit is not atomic. Each stock add is written on its own, new products
// are written as one group, and every failure is reported per entry.
package commit

import (
	"context"
	"encoding/json"
	"time"

	"pharmastock/internal/core/id"
	"pharmastock/internal/core/types"
	"pharmastock/internal/domain/staging"
)

// Outcome summarizes a commit round.
type Outcome string

const (
	OutcomeEmpty        Outcome = "empty"
	OutcomeAllSucceeded Outcome = "all_succeeded"
	OutcomePartial      Outcome = "partial"
	OutcomeAllFailed    Outcome = "all_failed"
)

// EntryFailure identifies a staged entry that could not be committed.
type EntryFailure struct {
	TempID string       `json:"tempId"`
	Kind   staging.Kind `json:"kind"`
	Code   string       `json:"code"`
	Reason string       `json:"reason"`
}

// CreatedLot is a lot written by the commit.
type CreatedLot struct {
	TempID     string         `json:"tempId"`
	ProductID  id.ID          `json:"productId"`
	BatchID    id.ID          `json:"batchId"`
	Quantity   types.Quantity `json:"quantity"`
	NewProduct bool           `json:"newProduct"`
}

// Report is the result of one commit round.
type Report struct {
	BatchReference     string         `json:"batchReference"`
	LocationID         id.ID          `json:"locationId"`
	Succeeded          []string       `json:"succeeded"`
	Failed             []EntryFailure `json:"failed"`
	Lots               []CreatedLot   `json:"lots"`
	Outcome            Outcome        `json:"outcome"`
	NextBatchReference string         `json:"nextBatchReference"`
	StartedAt          time.Time      `json:"startedAt"`
	FinishedAt         time.Time      `json:"finishedAt"`
}

func (r *Report) resolveOutcome() {
	switch {
	case len(r.Succeeded) == 0 && len(r.Failed) == 0:
		r.Outcome = OutcomeEmpty
	case len(r.Failed) == 0:
		r.Outcome = OutcomeAllSucceeded
	case len(r.Succeeded) == 0:
		r.Outcome = OutcomeAllFailed
	default:
		r.Outcome = OutcomePartial
	}
}

// AuditRecord is the persisted trace of a commit round.
type AuditRecord struct {
	ID             id.ID           `db:"id" json:"id"`
	BatchReference string          `db:"batch_reference" json:"batchReference"`
	LocationID     id.ID           `db:"location_id" json:"locationId"`
	OperatorID     string          `db:"operator_id" json:"operatorId"`
	Outcome        Outcome         `db:"outcome" json:"outcome"`
	Report         json.RawMessage `db:"report" json:"report"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
}

// AuditSink stores commit audit records.
type AuditSink interface {
	RecordCommit(ctx context.Context, rec AuditRecord) error
}

// AuditReader lists the commit audit records of a location, newest first.
type AuditReader interface {
	History(ctx context.Context, locationID id.ID, limit int) ([]AuditRecord, error)
}
