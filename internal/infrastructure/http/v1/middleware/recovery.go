// Package middleware provides HTTP middleware components.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"pharmastock/internal/core/apperror"
	appctx "pharmastock/internal/core/context"
	"pharmastock/pkg/logger"
)

// Recovery converts a handler panic into an internal error for ErrorHandler
// to render. http.ErrAbortHandler is re-raised so net/http drops the
// connection as asked.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer recoverPanic(c)
		c.Next()
	}
}

func recoverPanic(c *gin.Context) {
	v := recover()
	if v == nil {
		return
	}
	if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
		panic(v)
	}

	ctx := c.Request.Context()
	logger.Error(ctx, "handler panicked",
		"panic", v,
		"method", c.Request.Method,
		"route", c.FullPath(),
		"stack", string(debug.Stack()),
	)

	appErr := apperror.NewInternal(fmt.Errorf("panic: %v", v))
	if rid := appctx.RequestID(ctx); rid != "" {
		appErr = appErr.WithDetail("request_id", rid)
	}
	_ = c.Error(appErr)
	c.Abort()
}
