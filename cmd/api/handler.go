package api

import (
	authDelivery "mailpilot-backend/internal/auth/delivery"
	authRepo "mailpilot-backend/internal/auth/repository"
	authUsecase "mailpilot-backend/internal/auth/usecase"
	batchDelivery "mailpilot-backend/internal/batch/delivery"
	batchUsecasePkg "mailpilot-backend/internal/batch/usecase"
	"mailpilot-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase  authUsecase.AuthUsecase
	batchHandler *batchDelivery.BatchHandler
	fcmHandler   *authDelivery.FCMHandler
	config       *config.Config
}

func NewHandler(authUc authUsecase.AuthUsecase, batchUc batchUsecasePkg.BatchUsecase, fcmRepo authRepo.FCMTokenRepository, cfg *config.Config) *Handler {
	return &Handler{
		authUsecase:  authUc,
		batchHandler: batchDelivery.NewBatchHandler(batchUc),
		fcmHandler:   authDelivery.NewFCMHandler(fcmRepo),
		config:       cfg,
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.batchHandler, h.fcmHandler)

	return r.Run(addr)
}
