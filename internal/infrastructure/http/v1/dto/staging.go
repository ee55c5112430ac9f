package dto

import (
	"time"

	"pharmastock/internal/core/apperror"
	"pharmastock/internal/core/id"
	"pharmastock/internal/core/types"
	"pharmastock/internal/domain/catalog"
	"pharmastock/internal/domain/session"
	"pharmastock/internal/domain/staging"
)

// OpenSessionRequest starts a staging session.
type OpenSessionRequest struct {
	LocationID string `json:"locationId" binding:"required"`
}

// SessionResponse describes an open session.
type SessionResponse struct {
	ID             string    `json:"id"`
	LocationID     string    `json:"locationId"`
	OperatorID     string    `json:"operatorId,omitempty"`
	BatchReference string    `json:"batchReference"`
	Queued         int       `json:"queued"`
	CreatedAt      time.Time `json:"createdAt"`
}

// FromSession converts a session to its response.
func FromSession(s *session.Session) SessionResponse {
	return SessionResponse{
		ID:             s.ID,
		LocationID:     s.LocationID.String(),
		OperatorID:     s.OperatorID,
		BatchReference: s.Ledger.BatchReference(),
		Queued:         len(s.Ledger.Queued()),
		CreatedAt:      s.CreatedAt,
	}
}

// NewProductRequest stages a new product with its first lot.
type NewProductRequest struct {
	Product        catalog.Definition   `json:"product"`
	Quantity       staging.QuantitySpec `json:"quantity"`
	UnitCost       types.Money          `json:"unitCost"`
	SRP            types.Money          `json:"srp"`
	ExpirationDate *Date                `json:"expirationDate"`
}

// ToInput converts the request to the ledger input.
func (r NewProductRequest) ToInput() staging.NewProductInput {
	return staging.NewProductInput{
		Product:        r.Product,
		Quantity:       r.Quantity,
		UnitCost:       r.UnitCost,
		SRP:            r.SRP,
		ExpirationDate: r.ExpirationDate.Ptr(),
	}
}

// StockAddRequest stages a new lot for an existing product. A missing srp
// reuses the product's last known price.
type StockAddRequest struct {
	ProductID      string               `json:"productId" binding:"required"`
	Quantity       staging.QuantitySpec `json:"quantity"`
	UnitCost       types.Money          `json:"unitCost"`
	SRP            *types.Money         `json:"srp"`
	ExpirationDate *Date                `json:"expirationDate"`
}

// ToInput converts the request to the ledger input.
func (r StockAddRequest) ToInput() (staging.StockAddInput, error) {
	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return staging.StockAddInput{}, apperror.NewFieldValidation("productId", "invalid productId format")
	}
	return staging.StockAddInput{
		ProductID:      productID,
		Quantity:       r.Quantity,
		UnitCost:       r.UnitCost,
		SRP:            r.SRP,
		ExpirationDate: r.ExpirationDate.Ptr(),
	}, nil
}

// EnqueueResponse returns the temporary id of a staged entry.
type EnqueueResponse struct {
	TempID         string `json:"tempId"`
	BatchReference string `json:"batchReference"`
}

// EntriesResponse lists a session's staged entries in enqueue order.
type EntriesResponse struct {
	BatchReference string          `json:"batchReference"`
	Entries        []staging.Entry `json:"entries"`
}

// CommitRequest confirms the round being committed. An empty reference
// commits the session's current round.
type CommitRequest struct {
	BatchReference string `json:"batchReference"`
}
