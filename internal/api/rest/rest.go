package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/playware/inventory-service/internal/api/middleware"
	"github.com/playware/inventory-service/internal/metrics"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig, m *metrics.Metrics) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// Prometheus exposition for the injected metrics aggregator
	router.GET("/metrics", gin.WrapH(m.Handler()))

	v1 := router.Group("/v1")
	{
		// Granting mutates state; it is guarded when credentials are configured
		v1.POST("/inventory/grant", middleware.Auth(authCfg), handler.GrantItem)

		// Inventory reads are open
		v1.POST("/inventory/get", handler.GetInventory)
	}
}
