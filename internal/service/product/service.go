package product

import (
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
)

const (
	// Номера продуктов выдаются последовательно, "001", "002", ...
	firstProductNumber  = "001"
	productNumberDigits = 3

	// Выдача следующего номера — read-then-create без блокировки, поэтому
	// конкурентное создание может упереться в занятый номер и повторяется.
	maxCreateAttempts = 3
)

// Service отвечает за каталог продуктов: создание и витрину.
type Service struct {
	products domain.ProductRepository
	logger   *log.Entry
}

// NewService создаёт сервис каталога.
func NewService(products domain.ProductRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "product-service")
	}
	return &Service{
		products: products,
		logger:   logger,
	}
}

// CreateRequest описывает запрос на создание продукта.
type CreateRequest struct {
	Type          domain.ProductType
	SellingStatus domain.ProductSellingStatus
	Name          string
	PriceMinor    int64
}

// CreateProduct выдаёт продукту следующий последовательный номер и сохраняет его.
func (s *Service) CreateProduct(req CreateRequest) (Response, error) {
	var lastErr error
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		number, err := s.nextProductNumber()
		if err != nil {
			return Response{}, err
		}

		now := time.Now().UTC()
		product := domain.Product{
			ProductNumber: number,
			Type:          req.Type,
			SellingStatus: req.SellingStatus,
			Name:          req.Name,
			PriceMinor:    req.PriceMinor,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if errs := product.Validate(); len(errs) != 0 {
			return Response{}, errs[0]
		}

		err = s.products.Create(product)
		if err == nil {
			s.logger.WithFields(log.Fields{
				"product_number": product.ProductNumber,
				"type":           product.Type,
			}).Info("product created")
			return newResponse(product), nil
		}
		if err != domain.ErrProductNumberConflict {
			return Response{}, fmt.Errorf("create product: %w", err)
		}
		lastErr = err
		s.logger.WithField("product_number", number).Warn("product number taken, retrying")
	}
	return Response{}, lastErr
}

// GetSellingProducts возвращает витрину: продукты в статусах selling и hold,
// в порядке создания.
func (s *Service) GetSellingProducts() ([]Response, error) {
	products, err := s.products.FindBySellingStatusIn(domain.SellingStatusesForDisplay())
	if err != nil {
		return nil, fmt.Errorf("find selling products: %w", err)
	}

	result := make([]Response, 0, len(products))
	for _, product := range products {
		result = append(result, newResponse(product))
	}
	return result, nil
}

// nextProductNumber возвращает номер, следующий за последним выданным.
func (s *Service) nextProductNumber() (string, error) {
	latest, err := s.products.LatestProductNumber()
	if err != nil {
		return "", fmt.Errorf("latest product number: %w", err)
	}
	if latest == "" {
		return firstProductNumber, nil
	}

	n, err := strconv.Atoi(latest)
	if err != nil {
		return "", fmt.Errorf("malformed latest product number %q: %w", latest, err)
	}
	return fmt.Sprintf("%0*d", productNumberDigits, n+1), nil
}
