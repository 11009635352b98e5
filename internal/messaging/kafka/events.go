package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// Order события
	EventTypeOrderCreated  EventType = "order.created"
	EventTypeOrderRejected EventType = "order.rejected"

	// Product события
	EventTypeProductCreated EventType = "product.created"

	// Stock события
	EventTypeStockDeducted EventType = "stock.deducted"
	EventTypeStockRestored EventType = "stock.restored"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "kiosk.order.events"
	TopicProductEvents   = "kiosk.product.events"
	TopicDeadLetterQueue = "kiosk.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType  EventType              `json:"event_type"`
	OrderID    string                 `json:"order_id"`
	Status     string                 `json:"status"`
	TotalMinor int64                  `json:"total_minor"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, status string, totalMinor int64, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType:  eventType,
		OrderID:    orderID,
		Status:     status,
		TotalMinor: totalMinor,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}
}
