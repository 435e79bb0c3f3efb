package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"momo-gateway/internal/handlers"
	"momo-gateway/internal/middleware"
	"momo-gateway/pkg/logger"
)

type RouterConfig struct {
	JWTSecret          string
	CORSAllowedOrigins []string
	TrustedProxies     []string
	Gatherer           prometheus.Gatherer
}

func NewRouter(cfg RouterConfig, log *logger.Logger, paymentHandler *handlers.PaymentHandler, healthHandler *handlers.HealthHandler) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(log))
	router.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))

	v1 := router.Group("/api/v1")
	SetupPaymentRoutes(v1, paymentHandler, cfg.JWTSecret)

	router.GET("/health", healthHandler.Health)

	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	return router, nil
}
