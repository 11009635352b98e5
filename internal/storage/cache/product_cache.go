package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
)

const (
	defaultTTL        = 5 * time.Minute
	defaultCmdTimeout = 2 * time.Second

	productKeyPrefix = "kiosk:product:"
	displayKey       = "kiosk:products:display"
)

// ProductCache — read-through декоратор над каталогом продуктов.
// Кеш не источник истины: любая ошибка Redis приводит к походу в базу,
// а не к отказу операции.
type ProductCache struct {
	inner  domain.ProductRepository
	client *redis.Client
	ttl    time.Duration
	logger *log.Entry
}

// NewProductCache оборачивает репозиторий каталога Redis-кешем.
func NewProductCache(inner domain.ProductRepository, client *redis.Client, ttl time.Duration, logger *log.Entry) *ProductCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = log.WithField("component", "product-cache")
	}
	return &ProductCache{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Create сохраняет продукт и инвалидирует зависимые ключи кеша.
func (c *ProductCache) Create(product domain.Product) error {
	if err := c.inner.Create(product); err != nil {
		return err
	}

	ctx, cancel := c.cmdContext()
	defer cancel()

	if err := c.client.Del(ctx, displayKey).Err(); err != nil {
		c.logger.WithError(err).Warn("failed to invalidate product cache")
	}
	return nil
}

// FindByProductNumbers читает продукты из кеша, недостающие добирает из базы.
func (c *ProductCache) FindByProductNumbers(productNumbers []string) (map[string]domain.Product, error) {
	if len(productNumbers) == 0 {
		return map[string]domain.Product{}, nil
	}

	ctx, cancel := c.cmdContext()
	defer cancel()

	result := make(map[string]domain.Product, len(productNumbers))
	missing := make([]string, 0, len(productNumbers))

	keys := make([]string, 0, len(productNumbers))
	for _, number := range productNumbers {
		keys = append(keys, productKeyPrefix+number)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.WithError(err).Warn("product cache read failed, falling back to repository")
		return c.inner.FindByProductNumbers(productNumbers)
	}

	for i, raw := range values {
		number := productNumbers[i]
		data, ok := raw.(string)
		if !ok {
			missing = append(missing, number)
			continue
		}
		var product domain.Product
		if err := json.Unmarshal([]byte(data), &product); err != nil {
			c.logger.WithError(err).WithField("product_number", number).Warn("corrupted cache entry")
			missing = append(missing, number)
			continue
		}
		result[number] = product
	}

	if len(missing) == 0 {
		return result, nil
	}

	fetched, err := c.inner.FindByProductNumbers(missing)
	if err != nil {
		return nil, err
	}
	for number, product := range fetched {
		result[number] = product
		c.storeProduct(ctx, product)
	}

	return result, nil
}

// FindBySellingStatusIn кеширует только витринный запрос: он единственный,
// который ходит сюда с горячего пути чтения.
func (c *ProductCache) FindBySellingStatusIn(statuses []domain.ProductSellingStatus) ([]domain.Product, error) {
	ctx, cancel := c.cmdContext()
	defer cancel()

	if isDisplayQuery(statuses) {
		raw, err := c.client.Get(ctx, displayKey).Result()
		if err == nil {
			var products []domain.Product
			if jsonErr := json.Unmarshal([]byte(raw), &products); jsonErr == nil {
				return products, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).Warn("display cache read failed")
		}
	}

	products, err := c.inner.FindBySellingStatusIn(statuses)
	if err != nil {
		return nil, err
	}

	if isDisplayQuery(statuses) {
		if data, err := json.Marshal(products); err == nil {
			if err := c.client.Set(ctx, displayKey, data, c.ttl).Err(); err != nil {
				c.logger.WithError(err).Warn("display cache write failed")
			}
		}
	}

	return products, nil
}

// LatestProductNumber не кешируется: выдача следующего номера должна видеть
// актуальное состояние каталога.
func (c *ProductCache) LatestProductNumber() (string, error) {
	return c.inner.LatestProductNumber()
}

func (c *ProductCache) storeProduct(ctx context.Context, product domain.Product) {
	data, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, productKeyPrefix+product.ProductNumber, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("product_number", product.ProductNumber).Warn("product cache write failed")
	}
}

func (c *ProductCache) cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), defaultCmdTimeout)
}

func isDisplayQuery(statuses []domain.ProductSellingStatus) bool {
	display := domain.SellingStatusesForDisplay()
	if len(statuses) != len(display) {
		return false
	}
	for i := range statuses {
		if statuses[i] != display[i] {
			return false
		}
	}
	return true
}

// Ping проверяет доступность Redis для health-check.
func Ping(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return client.Ping(ctx).Err()
}

var _ domain.ProductRepository = (*ProductCache)(nil)
