package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// WebhookPath is the route LiqPay posts payment statuses to.
const WebhookPath = "/webhooks/liqpay"

// SetupRouter configures the Gin router with all routes and middleware.
func SetupRouter(handler *Handler, ginMode string, logger *slog.Logger) *gin.Engine {
	gin.SetMode(ginMode)
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(logger))

	router.GET("/health", handler.Health)

	// Called by LiqPay; authenticity is checked through the envelope signature.
	router.POST(WebhookPath, handler.HandlePaymentStatus)
	router.POST("/", handler.HandlePaymentStatus)

	return router
}
