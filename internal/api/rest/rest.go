package rest

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler) {
	// Health check endpoint (no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Marketplace read views (mirror only, never block on the chain)
		v1.GET("/nfts", handler.ListNFTs)
		v1.GET("/collections/:contract/nfts", handler.ListCollectionNFTs)

		// Verified single-token read (may synchronously reconcile)
		v1.GET("/collections/:contract/nfts/:token_id", handler.GetNFT)

		// Manual reconciliation trigger and job tracking
		v1.POST("/reconcile", handler.TriggerReconcile)
		v1.GET("/jobs/:id", handler.GetJob)

		// Sweep registry
		v1.POST("/collections", handler.RegisterCollection)
		v1.GET("/collections", handler.ListCollections)
	}
}
