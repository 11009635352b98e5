package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
	"github.com/vladislavdragonenkov/kiosk/internal/health"
)

// RouterConfig собирает зависимости HTTP-маршрутизатора.
type RouterConfig struct {
	Orders      *OrderHandler
	Products    *ProductHandler
	Idempotency domain.IdempotencyRepository
	Health      *health.Handler
	Logger      *log.Entry
}

// NewRouter собирает gin-маршрутизатор сервиса.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))

	if cfg.Health != nil {
		router.GET("/healthz", gin.WrapH(cfg.Health))
	}

	api := router.Group("/api/v1")

	orders := api.Group("/orders")
	orders.POST("/new", Idempotency(cfg.Idempotency, cfg.Logger), cfg.Orders.CreateOrder)
	orders.GET("", cfg.Orders.ListOrders)
	orders.GET("/:id", cfg.Orders.GetOrder)
	orders.GET("/:id/timeline", cfg.Orders.GetOrderTimeline)

	products := api.Group("/products")
	products.POST("/new", Idempotency(cfg.Idempotency, cfg.Logger), cfg.Products.CreateProduct)
	products.GET("/selling", cfg.Products.GetSellingProducts)

	return router
}

func requestLogger(logger *log.Entry) gin.HandlerFunc {
	if logger == nil {
		logger = log.WithField("component", "http")
	}
	return func(c *gin.Context) {
		c.Next()

		entry := logger.WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("request failed")
			return
		}
		entry.Debug("request handled")
	}
}
