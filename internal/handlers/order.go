package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
	"github.com/vladislavdragonenkov/kiosk/internal/service/order"
)

// OrderHandler обслуживает HTTP-операции над заказами.
type OrderHandler struct {
	service *order.Service
	logger  *log.Entry
}

// NewOrderHandler создаёт HTTP-handler заказов.
func NewOrderHandler(service *order.Service, logger *log.Entry) *OrderHandler {
	if logger == nil {
		logger = log.WithField("component", "order-handler")
	}
	return &OrderHandler{service: service, logger: logger}
}

// CreateOrderRequest — тело запроса на создание заказа. Номера продуктов
// могут повторяться: каждое вхождение — одна единица.
type CreateOrderRequest struct {
	ProductNumbers []string   `json:"product_numbers" binding:"required"`
	RegisteredAt   *time.Time `json:"registered_at"`
}

// CreateOrder обрабатывает POST /api/v1/orders/new.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	registeredAt := time.Now().UTC()
	if req.RegisteredAt != nil {
		registeredAt = req.RegisteredAt.UTC()
	}

	resp, err := h.service.CreateOrder(req.ProductNumbers, registeredAt)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetOrder обрабатывает GET /api/v1/orders/:id.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	resp, err := h.service.GetOrder(c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		h.logger.WithError(err).Error("get order failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListOrders обрабатывает GET /api/v1/orders?limit=N.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	orders, err := h.service.ListOrders(limit)
	if err != nil {
		h.logger.WithError(err).Error("list orders failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrderTimeline обрабатывает GET /api/v1/orders/:id/timeline.
func (h *OrderHandler) GetOrderTimeline(c *gin.Context) {
	events, err := h.service.Timeline(c.Param("id"))
	if err != nil {
		h.logger.WithError(err).Error("get order timeline failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	items := make([]gin.H, 0, len(events))
	for _, event := range events {
		items = append(items, gin.H{
			"type":     event.Type,
			"step":     string(event.Step),
			"reason":   event.Reason,
			"occurred": event.Occurred,
		})
	}

	c.JSON(http.StatusOK, gin.H{"order_id": c.Param("id"), "events": items})
}

func (h *OrderHandler) writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrProductNumbersRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "product numbers are required"})
	case errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case domain.IsInsufficientStock(err):
		var insufficient *domain.InsufficientStockError
		resp := gin.H{"error": "insufficient stock"}
		if errors.As(err, &insufficient) {
			resp["product_numbers"] = insufficient.ProductNumbers
		}
		c.JSON(http.StatusConflict, resp)
	case domain.IsStockConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent stock conflict, retry the request"})
	default:
		h.logger.WithError(err).Error("create order failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
