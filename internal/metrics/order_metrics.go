package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики конвейера создания заказов.
type OrderMetrics struct {
	// Счётчики исходов
	ordersCreated  prometheus.Counter
	ordersRejected *prometheus.CounterVec

	// Гистограмма времени создания заказа
	createDuration prometheus.Histogram

	// Счётчики складских операций
	stockDeductions   prometheus.Counter
	stockRestores     prometheus.Counter
	stockInsufficient prometheus.Counter
	stockRetries      prometheus.Counter

	// Счётчики событий timeline/outbox
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Gauge для запросов в обработке
	activeRequests prometheus.Gauge
}

// NewOrderMetrics создаёт новый экземпляр метрик заказов.
func NewOrderMetrics() *OrderMetrics {
	return newOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kiosk_orders_created_total",
			Help: "Total number of orders created successfully",
		}),
		ordersRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "kiosk_orders_rejected_total",
			Help: "Total number of rejected order requests grouped by reason",
		}, []string{"reason"}),
		createDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "kiosk_order_create_duration_seconds",
			Help:    "Duration of order creation in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		stockDeductions: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kiosk_stock_deductions_total",
			Help: "Total number of successful stock deductions",
		}),
		stockRestores: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kiosk_stock_restores_total",
			Help: "Total number of compensating stock restores",
		}),
		stockInsufficient: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kiosk_stock_insufficient_total",
			Help: "Total number of deductions rejected due to insufficient stock",
		}),
		stockRetries: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kiosk_stock_deduct_retries_total",
			Help: "Total number of deduction retries after concurrent conflicts",
		}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kiosk_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kiosk_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		activeRequests: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "kiosk_active_order_requests",
			Help: "Number of order creation requests currently in flight",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *OrderMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordOrderRejected увеличивает счётчик отклонённых запросов по причине.
func (m *OrderMetrics) RecordOrderRejected(reason string) {
	m.ordersRejected.WithLabelValues(reason).Inc()
}

// RecordCreateDuration записывает время создания заказа.
func (m *OrderMetrics) RecordCreateDuration(duration time.Duration) {
	m.createDuration.Observe(duration.Seconds())
}

// RecordStockDeduction увеличивает счётчик успешных списаний.
func (m *OrderMetrics) RecordStockDeduction() {
	m.stockDeductions.Inc()
}

// RecordStockRestore увеличивает счётчик компенсирующих возвратов.
func (m *OrderMetrics) RecordStockRestore() {
	m.stockRestores.Inc()
}

// RecordStockInsufficient увеличивает счётчик отказов из-за нехватки остатка.
func (m *OrderMetrics) RecordStockInsufficient() {
	m.stockInsufficient.Inc()
}

// RecordStockRetry увеличивает счётчик повторов после конкурентного конфликта.
func (m *OrderMetrics) RecordStockRetry() {
	m.stockRetries.Inc()
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *OrderMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *OrderMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// RecordRequestStarted увеличивает количество запросов в обработке.
func (m *OrderMetrics) RecordRequestStarted() {
	m.activeRequests.Inc()
}

// RecordRequestFinished уменьшает количество запросов в обработке.
func (m *OrderMetrics) RecordRequestFinished() {
	m.activeRequests.Dec()
}
