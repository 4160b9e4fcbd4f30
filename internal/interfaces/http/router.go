// Package http wires the gin router for the payment callback surface.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"paysweep/internal/application/payment/usecases"
	"paysweep/internal/infrastructure/cache"
	"paysweep/internal/infrastructure/config"
	"paysweep/internal/infrastructure/gateway"
	"paysweep/internal/infrastructure/repository"
	"paysweep/internal/interfaces/http/handlers"
	"paysweep/internal/interfaces/http/middleware"
	"paysweep/internal/shared/logger"
	"paysweep/internal/shared/utils"
)

// Router represents the HTTP router configuration
type Router struct {
	engine         *gin.Engine
	paymentHandler *handlers.PaymentHandler
}

// NewRouter creates a new HTTP router with all dependencies
func NewRouter(gormDB *gorm.DB, rdb *redis.Client, cfg *config.Config, log logger.Interface) *Router {
	if cfg.Server.Mode == "release" || cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	orderRepo := repository.NewOrderRepository(gormDB)
	trackRepo := repository.NewTrackRepository(gormDB)
	stateStore := cache.NewPaymentStateStore(rdb)
	gw := gateway.NewZibalGateway(cfg.Gateway, log)

	initiateUC := usecases.NewInitiatePaymentUseCase(orderRepo, trackRepo, stateStore, gw, log)
	verifyUC := usecases.NewVerifyPaymentUseCase(orderRepo, trackRepo, stateStore, gw, log)

	paymentHandler := handlers.NewPaymentHandler(initiateUC, verifyUC, log)

	return &Router{
		engine:         engine,
		paymentHandler: paymentHandler,
	}
}

// SetupRoutes configures all HTTP routes
func (r *Router) SetupRoutes(log logger.Interface) {
	r.engine.Use(middleware.Logger(log))
	r.engine.Use(middleware.Recovery())

	r.engine.GET("/health", func(c *gin.Context) {
		utils.SuccessResponse(c, http.StatusOK, "ok", nil)
	})

	guest := r.engine.Group("/api/v1/guest/payment")
	{
		guest.POST("/initiate/:method/:tradeNo", r.paymentHandler.InitiatePayment)
		// The gateway may return the user via GET and notify via POST.
		guest.GET("/notify/:method/:tradeNo", r.paymentHandler.HandleNotify)
		guest.POST("/notify/:method/:tradeNo", r.paymentHandler.HandleNotify)
	}
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
