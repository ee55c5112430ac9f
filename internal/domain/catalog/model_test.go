package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmastock/internal/core/apperror"
	"pharmastock/internal/core/id"
)

func validDefinition() Definition {
	return Definition{
		Name:              "Paracetamol 500mg",
		Category:          "Analgesic",
		ProductType:       ProductTypeMedicine,
		ConfigurationMode: ConfigurationBulk,
	}
}

func TestDefinitionValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Definition)
		field  string
	}{
		{name: "missing name", mutate: func(d *Definition) { d.Name = "  " }, field: "name"},
		{name: "missing category", mutate: func(d *Definition) { d.Category = "" }, field: "category"},
		{name: "bad product type", mutate: func(d *Definition) { d.ProductType = "Food" }, field: "productType"},
		{name: "bad mode", mutate: func(d *Definition) { d.ConfigurationMode = "crates" }, field: "configurationMode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDefinition()
			tt.mutate(&d)

			err := d.Validate()
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}

	assert.NoError(t, validDefinition().Validate())
}

func TestNewProduct(t *testing.T) {
	loc := id.New()
	d := validDefinition()
	d.Barcode = " 4800016 "

	p := NewProduct(loc, d, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	assert.False(t, id.IsNil(p.ID))
	assert.Equal(t, loc, p.LocationID)
	assert.Equal(t, StatusActive, p.Status)
	assert.True(t, p.Bulk)
	require.NotNil(t, p.Barcode)
	assert.Equal(t, "4800016", *p.Barcode)
	assert.True(t, p.IsActive())

	d.Barcode = ""
	assert.Nil(t, NewProduct(loc, d, time.Now()).Barcode)
}
