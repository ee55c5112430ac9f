package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"pharmastock/internal/app"
	"pharmastock/internal/core/apperror"
	"pharmastock/internal/core/types"
	"pharmastock/internal/domain/fifo"
	"pharmastock/internal/domain/lots"
	"pharmastock/internal/infrastructure/http/v1/dto"
)

// StockHandler serves lots, consumption, product status and alerts of a location.
type StockHandler struct {
	*BaseHandler
	service *app.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *app.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// Batches handles GET /locations/:lid/products/:pid/batches
func (h *StockHandler) Batches(c *gin.Context) {
	locationID, ok := h.ParamID(c, "lid")
	if !ok {
		return
	}
	productID, ok := h.ParamID(c, "pid")
	if !ok {
		return
	}

	batches, err := h.service.ListBatches(c.Request.Context(), productID, locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.BatchesResponse{
		Items:     batches,
		Available: lots.Available(batches, h.service.Lots.Today()),
	})
}

// Status handles GET /locations/:lid/products/:pid/status
func (h *StockHandler) Status(c *gin.Context) {
	locationID, ok := h.ParamID(c, "lid")
	if !ok {
		return
	}
	productID, ok := h.ParamID(c, "pid")
	if !ok {
		return
	}

	status, err := h.service.Classify(c.Request.Context(), productID, locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, status)
}

// Archive handles DELETE /locations/:lid/products/:pid
func (h *StockHandler) Archive(c *gin.Context) {
	locationID, ok := h.ParamID(c, "lid")
	if !ok {
		return
	}
	productID, ok := h.ParamID(c, "pid")
	if !ok {
		return
	}
	if err := h.service.ArchiveProduct(c.Request.Context(), productID, locationID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Consume handles POST /locations/:lid/products/:pid/consume
func (h *StockHandler) Consume(c *gin.Context) {
	locationID, ok := h.ParamID(c, "lid")
	if !ok {
		return
	}
	productID, ok := h.ParamID(c, "pid")
	if !ok {
		return
	}
	var req dto.ConsumeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	allocs, err := h.service.Consume(c.Request.Context(), productID, locationID, types.Quantity(req.Quantity))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ConsumeResponse{Allocations: allocs, Total: fifo.Total(allocs)})
}

// Commits handles GET /locations/:lid/commits?limit=N
func (h *StockHandler) Commits(c *gin.Context) {
	locationID, ok := h.ParamID(c, "lid")
	if !ok {
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 200 {
			h.Error(c, apperror.NewFieldValidation("limit", "limit must be between 1 and 200"))
			return
		}
		limit = n
	}

	records, err := h.service.CommitHistory(c.Request.Context(), locationID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.CommitHistoryResponse{Items: records})
}

// Alerts handles GET /locations/:lid/alerts. With ?cached=true the last scan is
// returned when there is one.
func (h *StockHandler) Alerts(c *gin.Context) {
	locationID, ok := h.ParamID(c, "lid")
	if !ok {
		return
	}

	if cached, _ := strconv.ParseBool(c.Query("cached")); cached {
		a, found, err := h.service.CachedAlerts(c.Request.Context(), locationID)
		if err != nil {
			h.Error(c, err)
			return
		}
		if found {
			h.OK(c, a)
			return
		}
	}

	a, err := h.service.ScanLocation(c.Request.Context(), locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, a)
}
