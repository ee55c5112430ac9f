// Package catalog defines products as the lot ledger sees them.
// A product never stores quantity or price: both live only in its lots.
package catalog

import (
	"strings"
	"time"

	"pharmastock/internal/core/apperror"
	"pharmastock/internal/core/id"
)

// ProductType distinguishes medicines from general merchandise.
type ProductType string

const (
	ProductTypeMedicine    ProductType = "Medicine"
	ProductTypeNonMedicine ProductType = "Non-Medicine"
)

// IsValid reports whether t is a known product type.
func (t ProductType) IsValid() bool {
	return t == ProductTypeMedicine || t == ProductTypeNonMedicine
}

// ConfigurationMode records how quantity was originally expressed.
type ConfigurationMode string

const (
	// ConfigurationBulk: boxes × units per box [× sub-units per unit]
	ConfigurationBulk ConfigurationMode = "bulk"
	// ConfigurationPieces: a direct piece count
	ConfigurationPieces ConfigurationMode = "pieces"
)

// IsValid reports whether m is a known configuration mode.
func (m ConfigurationMode) IsValid() bool {
	return m == ConfigurationBulk || m == ConfigurationPieces
}

// Status is the product lifecycle. Products are archived, never hard-deleted.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Product is a catalog item stocked at a location.
type Product struct {
	ID                id.ID             `db:"id" json:"id"`
	LocationID        id.ID             `db:"location_id" json:"locationId"`
	Name              string            `db:"name" json:"name"`
	Barcode           *string           `db:"barcode" json:"barcode,omitempty"`
	Category          string            `db:"category" json:"category"`
	Brand             string            `db:"brand" json:"brand,omitempty"`
	Supplier          string            `db:"supplier" json:"supplier,omitempty"`
	ProductType       ProductType       `db:"product_type" json:"productType"`
	ConfigurationMode ConfigurationMode `db:"configuration_mode" json:"configurationMode"`
	Prescription      bool              `db:"prescription" json:"prescription"`
	Bulk              bool              `db:"bulk" json:"bulk"`
	Status            Status            `db:"status" json:"status"`

	// Expiration is a legacy per-product date kept from older records. The
	// alert aggregator falls back to it when a lot scan fails.
	Expiration *time.Time `db:"expiration" json:"expiration,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Definition is the operator-supplied description of a new product.
type Definition struct {
	Name              string            `json:"name"`
	Barcode           string            `json:"barcode,omitempty"`
	Category          string            `json:"category"`
	Brand             string            `json:"brand,omitempty"`
	Supplier          string            `json:"supplier,omitempty"`
	ProductType       ProductType       `json:"productType"`
	ConfigurationMode ConfigurationMode `json:"configurationMode"`
	Prescription      bool              `json:"prescription"`
}

// Validate checks the fields that must be present before a definition can be staged.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return apperror.NewFieldValidation("name", "product name is required")
	}
	if strings.TrimSpace(d.Category) == "" {
		return apperror.NewFieldValidation("category", "category is required")
	}
	if !d.ProductType.IsValid() {
		return apperror.NewFieldValidation("productType", "product type must be Medicine or Non-Medicine").
			WithDetail("value", string(d.ProductType))
	}
	if !d.ConfigurationMode.IsValid() {
		return apperror.NewFieldValidation("configurationMode", "configuration mode must be bulk or pieces").
			WithDetail("value", string(d.ConfigurationMode))
	}
	return nil
}

// NewProduct materializes a definition as an active product at a location.
func NewProduct(locationID id.ID, d Definition, now time.Time) *Product {
	p := &Product{
		ID:                id.New(),
		LocationID:        locationID,
		Name:              strings.TrimSpace(d.Name),
		Category:          strings.TrimSpace(d.Category),
		Brand:             strings.TrimSpace(d.Brand),
		Supplier:          strings.TrimSpace(d.Supplier),
		ProductType:       d.ProductType,
		ConfigurationMode: d.ConfigurationMode,
		Prescription:      d.Prescription,
		Bulk:              d.ConfigurationMode == ConfigurationBulk,
		Status:            StatusActive,
		CreatedAt:         now.UTC(),
	}
	if b := strings.TrimSpace(d.Barcode); b != "" {
		p.Barcode = &b
	}
	return p
}

// IsActive reports whether the product is not archived.
func (p *Product) IsActive() bool {
	return p.Status != StatusArchived
}
