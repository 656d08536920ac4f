// Package v1 wires the HTTP API surface.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"obrador/internal/infrastructure/http/v1/handlers"
	"obrador/internal/infrastructure/http/v1/middleware"
	"obrador/internal/infrastructure/storage/postgres"
	"obrador/pkg/logger"
)

// Deps carries everything the router needs.
type Deps struct {
	Logger *logger.Logger

	Health    *handlers.HealthHandler
	Movements *handlers.MovementHandler
	Stock     *handlers.StockHandler
	Transfers *handlers.TransferHandler
	Orders    *handlers.OrderHandler
	Drafts    *handlers.DraftHandler
	Audit     *handlers.AuditHandler

	// Idempotency is optional; nil disables replay protection.
	Idempotency *postgres.IdempotencyStore

	MetricsEnabled bool
}

// NewRouter builds the gin engine with the full middleware chain and routes.
func NewRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Actor())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.ErrorHandler())
	if deps.MetricsEnabled {
		router.Use(middleware.Metrics())
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	router.GET("/health/live", deps.Health.Live)
	router.GET("/health/ready", deps.Health.Ready)

	api := router.Group("/api/v1")
	if deps.Idempotency != nil {
		api.Use(middleware.Idempotency(deps.Idempotency))
	}

	movements := api.Group("/movements")
	{
		movements.POST("", deps.Movements.Create)
	}

	warehouses := api.Group("/warehouses/:warehouse")
	{
		warehouses.GET("/movements", deps.Movements.ListByWarehouse)
		warehouses.GET("/stock", deps.Stock.WarehouseStock)
		warehouses.GET("/stock/:product", deps.Stock.ProductStock)
	}

	api.GET("/stock/:product", deps.Stock.ProductAcrossWarehouses)

	transfers := api.Group("/transfers")
	{
		transfers.POST("", deps.Transfers.Create)
		transfers.GET("", deps.Transfers.List)
		transfers.GET("/:id", deps.Transfers.Get)
		transfers.POST("/:id/confirm", deps.Transfers.Confirm)
		transfers.POST("/:id/cancel", deps.Transfers.Cancel)
	}

	orders := api.Group("/orders")
	{
		orders.POST("", deps.Orders.Create)
		orders.GET("", deps.Orders.List)
		orders.GET("/:id", deps.Orders.Get)
		orders.PUT("/:id/lines", deps.Orders.UpdateLines)
		orders.POST("/:id/close", deps.Orders.Close)
		orders.PUT("/:id/package-count", deps.Orders.SetPackageCount)
		orders.POST("/:id/ship", deps.Orders.Ship)
		orders.POST("/:id/cancel", deps.Orders.Cancel)
		orders.POST("/:id/returns/partial", deps.Orders.ReturnPartial)
		orders.POST("/:id/returns/total", deps.Orders.ReturnTotal)
	}

	drafts := api.Group("/drafts")
	{
		drafts.PUT("/:key", deps.Drafts.Save)
		drafts.GET("/:key", deps.Drafts.Get)
		drafts.DELETE("/:key", deps.Drafts.Delete)
	}

	api.GET("/audit/:entity/:id", deps.Audit.History)

	return router
}
