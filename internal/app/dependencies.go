package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
	"github.com/vladislavdragonenkov/kiosk/internal/storage/cache"
	"github.com/vladislavdragonenkov/kiosk/internal/storage/memory"
	"github.com/vladislavdragonenkov/kiosk/internal/storage/postgres"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Products    domain.ProductRepository
	Stocks      domain.StockRepository
	Orders      domain.OrderRepository
	Outbox      domain.OutboxRepository
	Timeline    domain.TimelineRepository
	Idempotency domain.IdempotencyRepository
	Logger      *log.Entry

	store       *postgres.Store
	redisClient *redis.Client
}

// NewDependencies создаёт зависимости согласно конфигурации: in-memory
// хранилище для локального запуска или PostgreSQL, опционально обёрнутый
// Redis-кешем каталог.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{Logger: logger}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		deps.store = store
		deps.Products = postgres.NewProductRepository(store)
		deps.Stocks = postgres.NewStockRepository(store)
		deps.Orders = postgres.NewOrderRepository(store)
		deps.Outbox = postgres.NewOutboxRepository(store)
		deps.Timeline = postgres.NewTimelineRepository(store)
		deps.Idempotency = postgres.NewIdempotencyRepository(store)
		logger.Info("postgres storage initialized")
	case StorageDriverMemory, "":
		deps.Products = memory.NewProductRepository()
		deps.Stocks = memory.NewStockRepository()
		deps.Orders = memory.NewOrderRepository()
		deps.Outbox = memory.NewOutboxRepository()
		deps.Timeline = memory.NewTimelineRepository()
		deps.Idempotency = memory.NewIdempotencyRepository()
		logger.Info("in-memory storage initialized")
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis is not reachable, product cache disabled")
			_ = client.Close()
		} else {
			deps.redisClient = client
			deps.Products = cache.NewProductCache(deps.Products, client, cfg.ProductCacheTTL, logger.WithField("component", "product-cache"))
			logger.WithField("addr", cfg.RedisAddr).Info("redis product cache initialized")
		}
	}

	return deps, nil
}

// PostgresStore возвращает подключение к базе для health-check, если оно есть.
func (d *Dependencies) PostgresStore() *postgres.Store {
	return d.store
}

// RedisClient возвращает клиент Redis, если кеш включён.
func (d *Dependencies) RedisClient() *redis.Client {
	return d.redisClient
}

// Close освобождает ресурсы зависимостей.
func (d *Dependencies) Close() {
	if d.redisClient != nil {
		if err := d.redisClient.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close redis client")
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
