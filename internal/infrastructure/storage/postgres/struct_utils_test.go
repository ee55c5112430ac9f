package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pharmastock/internal/core/id"
	"pharmastock/internal/core/types"
	"pharmastock/internal/domain/catalog"
	"pharmastock/internal/domain/lots"
)

type auditedLot struct {
	lots.Batch
	Note   string `db:"note"`
	Ignore string `db:"-"`
	Plain  string
}

func TestExtractDBColumns_Batch(t *testing.T) {
	cols := ExtractDBColumns[lots.Batch]()

	assert.Equal(t, []string{
		"id", "product_id", "location_id", "batch_reference",
		"quantity_received", "quantity_available", "unit_cost", "srp",
		"expiration_date", "entry_date", "entry_by",
	}, cols)
}

func TestExtractDBColumns_Embedded(t *testing.T) {
	cols := ExtractDBColumns[auditedLot]()

	assert.Contains(t, cols, "id")
	assert.Contains(t, cols, "entry_by")
	assert.Equal(t, "note", cols[len(cols)-1])
	assert.NotContains(t, cols, "-")
	assert.NotContains(t, cols, "Plain")
}

func TestExtractDBColumns_ReturnsCopy(t *testing.T) {
	cols := ExtractDBColumns[catalog.Product]()
	cols[0] = "mutated"

	assert.Equal(t, "id", ExtractDBColumns[catalog.Product]()[0])
}

func TestStructToMap(t *testing.T) {
	barcode := "4800000000017"
	p := &catalog.Product{
		ID:          id.New(),
		Name:        "Paracetamol 500mg",
		Barcode:     &barcode,
		ProductType: catalog.ProductTypeMedicine,
		Status:      catalog.StatusActive,
	}

	m := StructToMap(p)

	assert.Equal(t, p.ID, m["id"])
	assert.Equal(t, "Paracetamol 500mg", m["name"])
	assert.Equal(t, &barcode, m["barcode"])
	assert.Equal(t, catalog.ProductTypeMedicine, m["product_type"])
	assert.Nil(t, StructToMap((*catalog.Product)(nil)))
	assert.Nil(t, StructToMap(42))
}

func TestStructToMap_Embedded(t *testing.T) {
	lot := auditedLot{
		Batch: lots.Batch{ID: id.New(), QuantityAvailable: types.Quantity(5)},
		Note:  "recount",
	}

	m := StructToMap(lot)

	assert.Equal(t, lot.ID, m["id"])
	assert.Equal(t, types.Quantity(5), m["quantity_available"])
	assert.Equal(t, "recount", m["note"])
	assert.NotContains(t, m, "Plain")
}

func TestRowValues(t *testing.T) {
	exp := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	b := lots.Batch{ID: id.New(), QuantityReceived: 12, ExpirationDate: exp}

	row := RowValues(&b, []string{"quantity_received", "expiration_date", "id"})

	assert.Equal(t, []any{types.Quantity(12), exp, b.ID}, row)
}
