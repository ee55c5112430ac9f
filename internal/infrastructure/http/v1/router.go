// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"pharmastock/internal/app"
	"pharmastock/internal/infrastructure/http/v1/handlers"
	"pharmastock/internal/infrastructure/http/v1/middleware"
	"pharmastock/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	Service *app.Service

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation. Nil disables authentication.
	JWTValidator middleware.JWTValidator

	// AuthRequired rejects requests without a valid token. When false a
	// token is still honoured if sent.
	AuthRequired bool

	// Storage is pinged by /health/ready.
	Storage       handlers.HealthChecker
	StorageDriver string

	Development bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Recovery runs inside ErrorHandler so a recovered panic still gets a body.
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	healthHandler := handlers.NewHealthHandler(cfg.Storage, cfg.StorageDriver)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/stats", healthHandler.Stats)
	}

	v1 := router.Group("/api/v1")
	switch {
	case cfg.JWTValidator != nil && cfg.AuthRequired:
		v1.Use(middleware.Auth(cfg.JWTValidator))
	case cfg.JWTValidator != nil:
		v1.Use(middleware.OptionalAuth(cfg.JWTValidator))
	}

	base := handlers.NewBaseHandler()
	RegisterSessionRoutes(v1.Group("/sessions"), handlers.NewSessionHandler(base, cfg.Service))
	RegisterStockRoutes(v1.Group("/locations"), handlers.NewStockHandler(base, cfg.Service))

	return router
}
