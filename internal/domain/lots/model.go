// Package lots provides the FIFO lot store: the dated, priced batches that
// make up a product's on-hand quantity at a location.
package lots

import (
	"sort"
	"time"

	"pharmastock/internal/core/id"
	"pharmastock/internal/core/types"
)

// Batch is one lot of a product received at one time.
//
// QuantityAvailable starts equal to QuantityReceived and only ever decreases.
type Batch struct {
	ID                id.ID          `db:"id" json:"id"`
	ProductID         id.ID          `db:"product_id" json:"productId"`
	LocationID        id.ID          `db:"location_id" json:"locationId"`
	BatchReference    string         `db:"batch_reference" json:"batchReference"`
	QuantityReceived  types.Quantity `db:"quantity_received" json:"quantityReceived"`
	QuantityAvailable types.Quantity `db:"quantity_available" json:"quantityAvailable"`
	UnitCost          types.Money    `db:"unit_cost" json:"unitCost"`
	SRP               types.Money    `db:"srp" json:"srp"`
	ExpirationDate    time.Time      `db:"expiration_date" json:"expirationDate"`
	EntryDate         time.Time      `db:"entry_date" json:"entryDate"`
	EntryBy           string         `db:"entry_by" json:"entryBy"`
}

// IsExhausted reports whether nothing is left in the lot.
func (b *Batch) IsExhausted() bool {
	return b.QuantityAvailable <= 0
}

// IsExpired reports whether today is past the lot's expiration date.
func (b *Batch) IsExpired(today time.Time) bool {
	return types.DateOnly(today).After(types.DateOnly(b.ExpirationDate))
}

// IsSellable reports whether the lot can still be consumed.
func (b *Batch) IsSellable(today time.Time) bool {
	return !b.IsExhausted() && !b.IsExpired(today)
}

// NewBatch is the input for creating a lot.
type NewBatch struct {
	ProductID      id.ID
	LocationID     id.ID
	Quantity       types.Quantity
	UnitCost       types.Money
	SRP            types.Money
	ExpirationDate *time.Time
	BatchReference string
	EntryBy        string
}

// FIFOLess orders lots for consumption: oldest entry first, ties broken by id
// (UUIDv7, so insertion order).
func FIFOLess(a, b *Batch) bool {
	if !a.EntryDate.Equal(b.EntryDate) {
		return a.EntryDate.Before(b.EntryDate)
	}
	return id.Compare(a.ID, b.ID) < 0
}

// SortFIFO sorts lots in consumption order in place.
func SortFIFO(batches []Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		return FIFOLess(&batches[i], &batches[j])
	})
}

// Available sums QuantityAvailable over lots that have not expired by today.
func Available(batches []Batch, today time.Time) types.Quantity {
	var total types.Quantity
	for i := range batches {
		if batches[i].IsExpired(today) {
			continue
		}
		total += batches[i].QuantityAvailable
	}
	return total
}
