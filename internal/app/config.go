package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StorageDriver задаёт бэкенд хранения.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool

	RedisAddr       string
	ProductCacheTTL time.Duration

	KafkaBrokers string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int

	IdempotencyCleanupInterval time.Duration
}

// DefaultConfig возвращает конфигурацию для локального запуска без внешних
// зависимостей: in-memory хранилище, без Kafka и Redis.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                   ":8080",
		MetricsAddr:                ":9090",
		StorageDriver:              StorageDriverMemory,
		PostgresAutoMigrate:        true,
		ProductCacheTTL:            5 * time.Minute,
		OutboxPollInterval:         time.Second,
		OutboxBatchSize:            100,
		OutboxMaxAttempts:          3,
		IdempotencyCleanupInterval: 10 * time.Minute,
	}
}

// LoadConfigFromEnv читает конфигурацию из окружения поверх значений по умолчанию.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("KIOSK_HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("KIOSK_METRICS_ADDR")); v != "" {
		cfg.MetricsAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("KIOSK_STORAGE_DRIVER")); v != "" {
		driver := StorageDriver(v)
		if driver != StorageDriverMemory && driver != StorageDriverPostgres {
			return Config{}, fmt.Errorf("unsupported storage driver: %s", v)
		}
		cfg.StorageDriver = driver
	}
	if v := strings.TrimSpace(os.Getenv("KIOSK_PG_DSN")); v != "" {
		cfg.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv("KIOSK_PG_AUTO_MIGRATE")); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse KIOSK_PG_AUTO_MIGRATE: %w", err)
		}
		cfg.PostgresAutoMigrate = parsed
	}
	if v := strings.TrimSpace(os.Getenv("KIOSK_REDIS_ADDR")); v != "" {
		cfg.RedisAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("KIOSK_KAFKA_BROKERS")); v != "" {
		cfg.KafkaBrokers = v
	}

	var err error
	if cfg.ProductCacheTTL, err = durationEnv("KIOSK_PRODUCT_CACHE_TTL", cfg.ProductCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = durationEnv("KIOSK_OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyCleanupInterval, err = durationEnv("KIOSK_IDEMPOTENCY_CLEANUP_INTERVAL", cfg.IdempotencyCleanupInterval); err != nil {
		return Config{}, err
	}
	if cfg.OutboxBatchSize, err = intEnv("KIOSK_OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize); err != nil {
		return Config{}, err
	}
	if cfg.OutboxMaxAttempts, err = intEnv("KIOSK_OUTBOX_MAX_ATTEMPTS", cfg.OutboxMaxAttempts); err != nil {
		return Config{}, err
	}

	if cfg.StorageDriver == StorageDriverPostgres && cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("postgres storage driver requires KIOSK_PG_DSN")
	}

	return cfg, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return parsed, nil
}

func intEnv(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return parsed, nil
}
