package v1

import (
	"github.com/gin-gonic/gin"

	"pharmastock/internal/infrastructure/http/v1/middleware"
)

// SessionRouteHandler serves staging sessions.
type SessionRouteHandler interface {
	Open(c *gin.Context)
	Get(c *gin.Context)
	Close(c *gin.Context)
	ListEntries(c *gin.Context)
	EnqueueNewProduct(c *gin.Context)
	EnqueueStockAdd(c *gin.Context)
	RemoveEntry(c *gin.Context)
	RequeueEntry(c *gin.Context)
	ClearEntries(c *gin.Context)
	Commit(c *gin.Context)
}

// StockRouteHandler serves lots and alerts of a location.
type StockRouteHandler interface {
	Batches(c *gin.Context)
	Status(c *gin.Context)
	Consume(c *gin.Context)
	Alerts(c *gin.Context)
	Commits(c *gin.Context)
	Archive(c *gin.Context)
}

// RegisterSessionRoutes registers the staging and commit routes.
func RegisterSessionRoutes(group *gin.RouterGroup, handler SessionRouteHandler) {
	group.POST("", handler.Open)

	sess := group.Group("/:sid", middleware.SessionContext())
	sess.GET("", handler.Get)
	sess.DELETE("", handler.Close)
	sess.GET("/entries", handler.ListEntries)
	sess.DELETE("/entries", handler.ClearEntries)
	sess.POST("/entries/new-product", handler.EnqueueNewProduct)
	sess.POST("/entries/stock-add", handler.EnqueueStockAdd)
	sess.DELETE("/entries/:tid", handler.RemoveEntry)
	sess.POST("/entries/:tid/requeue", handler.RequeueEntry)
	sess.POST("/commit", handler.Commit)
}

// RegisterStockRoutes registers the per-location lot and alert routes.
func RegisterStockRoutes(group *gin.RouterGroup, handler StockRouteHandler) {
	group.GET("/:lid/alerts", handler.Alerts)
	group.GET("/:lid/commits", handler.Commits)

	product := group.Group("/:lid/products/:pid")
	product.DELETE("", handler.Archive)
	product.GET("/batches", handler.Batches)
	product.GET("/status", handler.Status)
	product.POST("/consume", handler.Consume)
}
