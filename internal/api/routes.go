package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes.
func SetupRoutes(router *gin.Engine, handler *Handler, metrics http.Handler) {
	// Health, readiness and metrics
	router.GET("/health", handler.HealthCheck)
	router.GET("/ready", handler.ReadyCheck)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/check-url", handler.CheckURL) // POST /api/v1/check-url
		v1.POST("/analyze", handler.Analyze)    // POST /api/v1/analyze

		feedback := v1.Group("/feedback")
		{
			feedback.POST("", handler.SubmitFeedback) // POST /api/v1/feedback
			feedback.GET("", handler.ListFeedback)    // GET  /api/v1/feedback
		}

		trusted := v1.Group("/trusted")
		{
			trusted.GET("", handler.ListTrusted)      // GET    /api/v1/trusted
			trusted.POST("", handler.AddTrusted)      // POST   /api/v1/trusted
			trusted.DELETE("", handler.RemoveTrusted) // DELETE /api/v1/trusted?url=...
		}

		v1.GET("/stats", handler.GetStats) // GET /api/v1/stats
	}
}
