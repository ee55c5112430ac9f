package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmastock/internal/infrastructure/storage/postgres"
)

// HealthChecker reports whether the storage backend is reachable.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// PoolStatsReporter is implemented by backends with a connection pool.
type PoolStatsReporter interface {
	Stats() postgres.PoolStats
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	storage HealthChecker
	driver  string
}

// NewHealthHandler creates a new health handler. A nil checker is always healthy.
func NewHealthHandler(storage HealthChecker, driver string) *HealthHandler {
	return &HealthHandler{storage: storage, driver: driver}
}

// Live handles the liveness check.
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready handles the readiness check.
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.storage != nil {
		if err := h.storage.Check(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "error",
				"checks": map[string]string{
					"storage": "unhealthy: " + err.Error(),
				},
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"checks": map[string]string{
			"storage": "healthy",
		},
		"driver": h.driver,
	})
}

// Stats returns connection pool statistics.
// GET /health/stats
func (h *HealthHandler) Stats(c *gin.Context) {
	reporter, ok := h.storage.(PoolStatsReporter)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"driver": h.driver})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"driver": h.driver,
		"pool":   reporter.Stats(),
	})
}
