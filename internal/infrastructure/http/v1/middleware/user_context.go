package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "pharmastock/internal/core/context"
)

// SessionContext records the :sid path parameter on the trace context so
// that every log line of the request carries the staging session id.
//
// It must run after Trace.
func SessionContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sid := c.Param("sid"); sid != "" {
			c.Request = c.Request.WithContext(appctx.WithSessionID(c.Request.Context(), sid))
			c.Set("session_id", sid)
		}
		c.Next()
	}
}
