package dto

import (
	"pharmastock/internal/core/types"
	"pharmastock/internal/domain/commit"
	"pharmastock/internal/domain/fifo"
	"pharmastock/internal/domain/lots"
)

// BatchesResponse lists a product's lots in consumption order.
type BatchesResponse struct {
	Items     []lots.Batch   `json:"items"`
	Available types.Quantity `json:"available"`
}

// CommitHistoryResponse lists audited commit rounds, newest first.
type CommitHistoryResponse struct {
	Items []commit.AuditRecord `json:"items"`
}

// ConsumeRequest deducts a sold quantity.
type ConsumeRequest struct {
	Quantity int64 `json:"quantity"`
}

// ConsumeResponse lists the lots a consumption drew from.
type ConsumeResponse struct {
	Allocations []fifo.Allocation `json:"allocations"`
	Total       types.Quantity    `json:"total"`
}
