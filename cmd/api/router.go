package api

import (
	"net/http"

	"mailpilot-backend/internal/auth/delivery"
	authUsecase "mailpilot-backend/internal/auth/usecase"
	batchDelivery "mailpilot-backend/internal/batch/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authUsecase authUsecase.AuthUsecase, batchHandler *batchDelivery.BatchHandler, fcmHandler *delivery.FCMHandler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(delivery.AuthMiddleware(authUsecase))
		{
			fcm.POST("/register", fcmHandler.RegisterToken)
			fcm.DELETE("/:token", fcmHandler.UnregisterToken)
		}

		// Batch routes (protected)
		batches := api.Group("/batches")
		batches.Use(delivery.AuthMiddleware(authUsecase))
		{
			batches.POST("", batchHandler.CreateBatch)
			batches.GET("", batchHandler.ListBatchHistory)
			batches.GET("/:id", batchHandler.GetBatchStatus)
			batches.POST("/:id/execute", batchHandler.ExecuteBatch)
		}
	}
}
