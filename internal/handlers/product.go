package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
	"github.com/vladislavdragonenkov/kiosk/internal/service/product"
)

// ProductHandler обслуживает HTTP-операции над каталогом.
type ProductHandler struct {
	service *product.Service
	logger  *log.Entry
}

// NewProductHandler создаёт HTTP-handler каталога.
func NewProductHandler(service *product.Service, logger *log.Entry) *ProductHandler {
	if logger == nil {
		logger = log.WithField("component", "product-handler")
	}
	return &ProductHandler{service: service, logger: logger}
}

// CreateProductRequest — тело запроса на создание продукта.
type CreateProductRequest struct {
	Type          string `json:"type" binding:"required"`
	SellingStatus string `json:"selling_status" binding:"required"`
	Name          string `json:"name" binding:"required"`
	PriceMinor    int64  `json:"price_minor"`
}

// CreateProduct обрабатывает POST /api/v1/products/new.
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.CreateProduct(product.CreateRequest{
		Type:          domain.ProductType(req.Type),
		SellingStatus: domain.ProductSellingStatus(req.SellingStatus),
		Name:          req.Name,
		PriceMinor:    req.PriceMinor,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownProductType),
			errors.Is(err, domain.ErrProductNameRequired),
			errors.Is(err, domain.ErrProductPriceNegative):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrProductNumberConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "product number conflict, retry the request"})
		default:
			h.logger.WithError(err).Error("create product failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetSellingProducts обрабатывает GET /api/v1/products/selling.
func (h *ProductHandler) GetSellingProducts(c *gin.Context) {
	products, err := h.service.GetSellingProducts()
	if err != nil {
		h.logger.WithError(err).Error("get selling products failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}
