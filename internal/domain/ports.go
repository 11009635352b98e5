package domain

import "time"

// ProductRepository описывает требования к хранилищу каталога продуктов.
type ProductRepository interface {
	// Create сохраняет новый продукт. Возвращает ErrProductNumberConflict,
	// если номер уже занят (гонка при выдаче следующего номера).
	Create(product Product) error
	// FindByProductNumbers выполняет один батчевый запрос по множеству
	// уникальных номеров и возвращает найденные продукты по ключу номера.
	FindByProductNumbers(productNumbers []string) (map[string]Product, error)
	// FindBySellingStatusIn возвращает продукты в заданных статусах продажи.
	FindBySellingStatusIn(statuses []ProductSellingStatus) ([]Product, error)
	// LatestProductNumber возвращает последний выданный номер продукта
	// или пустую строку, если каталог пуст.
	LatestProductNumber() (string, error)
}

// StockRepository описывает складской реестр остатков.
type StockRepository interface {
	// FindByProductNumbers возвращает складские записи по ключу номера продукта.
	FindByProductNumbers(productNumbers []string) (map[string]Stock, error)
	// Upsert создаёт или заменяет складскую запись (наполнение склада).
	Upsert(stock Stock) error
	// CheckAndDeduct атомарно проверяет остаток и списывает qty единиц,
	// возвращая новый остаток. Последовательность read-compare-write
	// неделима относительно конкурентных списаний того же номера;
	// списания разных номеров друг друга не блокируют.
	// Возвращает InsufficientStockError без какой-либо мутации, если
	// остатка не хватает, и ErrStockConflict при конкурентном конфликте,
	// который имеет смысл повторить.
	CheckAndDeduct(productNumber string, qty int32) (int32, error)
	// Restore возвращает qty единиц на склад — компенсация уже выполненного
	// списания, когда более поздний шаг того же заказа провалился.
	Restore(productNumber string, qty int32) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OrderStep задаёт имена шагов создания заказа для метрик/логов/timeline.
type OrderStep string

const (
	OrderStepReceived  OrderStep = "received"
	OrderStepResolved  OrderStep = "products_resolved"
	OrderStepReserved  OrderStep = "stock_reserved"
	OrderStepAssembled OrderStep = "assembled"
	OrderStepPersisted OrderStep = "persisted"
	OrderStepRejected  OrderStep = "rejected"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
