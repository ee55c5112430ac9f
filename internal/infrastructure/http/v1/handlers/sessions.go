package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmastock/internal/app"
	"pharmastock/internal/core/apperror"
	"pharmastock/internal/core/id"
	"pharmastock/internal/domain/commit"
	"pharmastock/internal/infrastructure/http/v1/dto"
)

// SessionHandler serves staging sessions, their entries and commits.
type SessionHandler struct {
	*BaseHandler
	service *app.Service
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(base *BaseHandler, service *app.Service) *SessionHandler {
	return &SessionHandler{BaseHandler: base, service: service}
}

// Open handles POST /sessions
func (h *SessionHandler) Open(c *gin.Context) {
	var req dto.OpenSessionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	locationID, err := id.Parse(req.LocationID)
	if err != nil {
		h.Error(c, apperror.NewFieldValidation("locationId", "invalid locationId format"))
		return
	}

	sess, err := h.service.OpenSession(c.Request.Context(), locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromSession(sess))
}

// Get handles GET /sessions/:sid
func (h *SessionHandler) Get(c *gin.Context) {
	sess, err := h.service.Session(c.Request.Context(), c.Param("sid"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSession(sess))
}

// Close handles DELETE /sessions/:sid
func (h *SessionHandler) Close(c *gin.Context) {
	if err := h.service.CloseSession(c.Request.Context(), c.Param("sid")); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// ListEntries handles GET /sessions/:sid/entries
func (h *SessionHandler) ListEntries(c *gin.Context) {
	ctx := c.Request.Context()
	sess, err := h.service.Session(ctx, c.Param("sid"))
	if err != nil {
		h.Error(c, err)
		return
	}
	entries, err := h.service.ListStaged(ctx, sess.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.EntriesResponse{BatchReference: sess.Ledger.BatchReference(), Entries: entries})
}

// EnqueueNewProduct handles POST /sessions/:sid/entries/new-product
func (h *SessionHandler) EnqueueNewProduct(c *gin.Context) {
	var req dto.NewProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.enqueued(c, func() (string, error) {
		return h.service.EnqueueNewProduct(c.Request.Context(), c.Param("sid"), req.ToInput())
	})
}

// EnqueueStockAdd handles POST /sessions/:sid/entries/stock-add
func (h *SessionHandler) EnqueueStockAdd(c *gin.Context) {
	var req dto.StockAddRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}
	h.enqueued(c, func() (string, error) {
		return h.service.EnqueueStockAdd(c.Request.Context(), c.Param("sid"), in)
	})
}

func (h *SessionHandler) enqueued(c *gin.Context, enqueue func() (string, error)) {
	tempID, err := enqueue()
	if err != nil {
		h.Error(c, err)
		return
	}
	sess, err := h.service.Session(c.Request.Context(), c.Param("sid"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.EnqueueResponse{TempID: tempID, BatchReference: sess.Ledger.BatchReference()})
}

// RemoveEntry handles DELETE /sessions/:sid/entries/:tid
func (h *SessionHandler) RemoveEntry(c *gin.Context) {
	if err := h.service.RemoveStaged(c.Request.Context(), c.Param("sid"), c.Param("tid")); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// RequeueEntry handles POST /sessions/:sid/entries/:tid/requeue
func (h *SessionHandler) RequeueEntry(c *gin.Context) {
	if err := h.service.RequeueStaged(c.Request.Context(), c.Param("sid"), c.Param("tid")); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "entry requeued")
}

// ClearEntries handles DELETE /sessions/:sid/entries
func (h *SessionHandler) ClearEntries(c *gin.Context) {
	if err := h.service.ClearStaged(c.Request.Context(), c.Param("sid")); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Commit handles POST /sessions/:sid/commit. The status reflects the outcome:
// 200 when nothing failed, 207 for a partial round, 422 when every entry failed.
func (h *SessionHandler) Commit(c *gin.Context) {
	var req dto.CommitRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	report, err := h.service.Commit(c.Request.Context(), c.Param("sid"), req.BatchReference)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(CommitStatus(report.Outcome), report)
}

// CommitStatus maps a commit outcome to its HTTP status.
func CommitStatus(o commit.Outcome) int {
	switch o {
	case commit.OutcomePartial:
		return http.StatusMultiStatus
	case commit.OutcomeAllFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusOK
	}
}
