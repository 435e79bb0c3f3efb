package routes

import (
	"github.com/gin-gonic/gin"

	"momo-gateway/internal/handlers"
	"momo-gateway/internal/middleware"
)

// SetupPaymentRoutes registers the merchant API behind bearer auth and the
// gateway callback without it.
func SetupPaymentRoutes(r *gin.RouterGroup, paymentHandler *handlers.PaymentHandler, jwtSecret string) {
	// Gateway callbacks, unauthenticated
	callbacks := r.Group("/callbacks")
	{
		callbacks.PUT("/momo", paymentHandler.HandleCallback)
		callbacks.POST("/momo", paymentHandler.HandleCallback)
	}

	payments := r.Group("/payments")
	payments.Use(middleware.AuthRequired(jwtSecret))
	{
		payments.POST("", paymentHandler.RequestPayment)
		payments.GET("/:id", paymentHandler.GetPayment)
	}

	r.GET("/balance", middleware.AuthRequired(jwtSecret), paymentHandler.GetBalance)
}
