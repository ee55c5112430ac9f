// Package staging holds stock changes an operator has prepared but not yet
// committed. Staged entries never affect on-hand quantities or alerts.
package staging

import (
	"math"
	"time"

	"pharmastock/internal/core/apperror"
	"pharmastock/internal/core/id"
	"pharmastock/internal/core/types"
	"pharmastock/internal/domain/catalog"
)

// Kind tells what a staged entry creates on commit.
type Kind string

const (
	KindNewProduct Kind = "new_product"
	KindStockAdd   Kind = "stock_add"
)

// State is the lifecycle of a staged entry.
//
//	queued -> committed | failed | removed
//	failed -> queued (requeue) | removed
type State string

const (
	StateQueued    State = "queued"
	StateCommitted State = "committed"
	StateFailed    State = "failed"
	StateRemoved   State = "removed"
)

// QuantitySpec is the quantity as the operator entered it.
type QuantitySpec struct {
	Mode            catalog.ConfigurationMode `json:"configurationMode"`
	Boxes           int64                     `json:"boxes,omitempty"`
	UnitsPerBox     int64                     `json:"unitsPerBox,omitempty"`
	SubUnitsPerUnit int64                     `json:"subUnitsPerUnit,omitempty"`
	TotalPieces     int64                     `json:"totalPieces,omitempty"`
}

// Resolve converts the quantity to a piece count.
// Bulk: boxes × units per box, × sub-units per unit when given.
func (q QuantitySpec) Resolve() (types.Quantity, error) {
	switch q.Mode {
	case catalog.ConfigurationPieces:
		if q.TotalPieces <= 0 {
			return 0, apperror.NewFieldValidation("totalPieces", "total pieces must be greater than zero")
		}
		return types.Quantity(q.TotalPieces), nil

	case catalog.ConfigurationBulk:
		if q.Boxes <= 0 {
			return 0, apperror.NewFieldValidation("boxes", "number of boxes must be greater than zero")
		}
		if q.UnitsPerBox <= 0 {
			return 0, apperror.NewFieldValidation("unitsPerBox", "units per box must be greater than zero")
		}
		if q.SubUnitsPerUnit < 0 {
			return 0, apperror.NewFieldValidation("subUnitsPerUnit", "sub-units per unit cannot be negative")
		}
		pieces, ok := mulPositive(q.Boxes, q.UnitsPerBox)
		if ok && q.SubUnitsPerUnit > 0 {
			pieces, ok = mulPositive(pieces, q.SubUnitsPerUnit)
		}
		if !ok {
			return 0, apperror.NewFieldValidation("quantity", "total piece count is too large").
				WithDetail("boxes", q.Boxes).
				WithDetail("unitsPerBox", q.UnitsPerBox).
				WithDetail("subUnitsPerUnit", q.SubUnitsPerUnit)
		}
		return types.Quantity(pieces), nil

	default:
		return 0, apperror.NewFieldValidation("configurationMode", "configuration mode must be bulk or pieces").
			WithDetail("value", string(q.Mode))
	}
}

// mulPositive multiplies two positive factors, reporting false on overflow.
func mulPositive(a, b int64) (int64, bool) {
	if a > math.MaxInt64/b {
		return 0, false
	}
	return a * b, true
}

// Failure is the reason of the last failed commit attempt.
type Failure struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Entry is one staged stock change.
//
// Pieces is resolved once at enqueue time and carried unchanged through
// commit.
type Entry struct {
	TempID         string              `json:"tempId"`
	Kind           Kind                `json:"kind"`
	State          State               `json:"state"`
	Product        *catalog.Definition `json:"product,omitempty"`
	ProductID      id.ID               `json:"productId,omitempty"`
	Quantity       QuantitySpec        `json:"quantity"`
	Pieces         types.Quantity      `json:"pieces"`
	UnitCost       types.Money         `json:"unitCost"`
	SRP            types.Money         `json:"srp"`
	ExpirationDate *time.Time          `json:"expirationDate,omitempty"`
	BatchReference string              `json:"batchReference"`
	EnqueuedAt     time.Time           `json:"enqueuedAt"`
	Attempts       int                 `json:"attempts"`
	LastFailure    *Failure            `json:"lastFailure,omitempty"`
}

// ValidateLot checks the lot attributes every entry needs before it can be
// written.
func (e *Entry) ValidateLot() error {
	if !e.Pieces.IsPositive() {
		return apperror.NewFieldValidation("quantity", "quantity must be greater than zero").
			WithDetail("temp_id", e.TempID)
	}
	if !e.SRP.IsPositive() {
		return apperror.NewFieldValidation("srp", "selling price must be greater than zero").
			WithDetail("temp_id", e.TempID)
	}
	if e.UnitCost.IsNegative() {
		return apperror.NewFieldValidation("unitCost", "unit cost cannot be negative").
			WithDetail("temp_id", e.TempID)
	}
	if e.ExpirationDate == nil || e.ExpirationDate.IsZero() {
		return apperror.NewFieldValidation("expirationDate", "expiration date is required").
			WithDetail("temp_id", e.TempID)
	}
	return nil
}

// Validate checks the whole entry.
func (e *Entry) Validate() error {
	switch e.Kind {
	case KindNewProduct:
		if e.Product == nil {
			return apperror.NewFieldValidation("product", "product definition is required")
		}
		if err := e.Product.Validate(); err != nil {
			return err
		}
	case KindStockAdd:
		if id.IsNil(e.ProductID) {
			return apperror.NewFieldValidation("productId", "product is required")
		}
	default:
		return apperror.NewFieldValidation("kind", "unknown entry kind").WithDetail("value", string(e.Kind))
	}
	return e.ValidateLot()
}

func (e *Entry) clone() Entry {
	c := *e
	if e.Product != nil {
		p := *e.Product
		c.Product = &p
	}
	if e.ExpirationDate != nil {
		t := *e.ExpirationDate
		c.ExpirationDate = &t
	}
	if e.LastFailure != nil {
		f := *e.LastFailure
		c.LastFailure = &f
	}
	return c
}
