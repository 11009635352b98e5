package order

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
	"github.com/vladislavdragonenkov/kiosk/internal/metrics"
)

const (
	// Параметры повторов списания при конкурентном конфликте.
	maxDeductAttempts = 3
	deductRetryDelay  = 10 * time.Millisecond

	eventTypeOrderCreated  = "OrderCreated"
	eventTypeOrderRejected = "OrderRejected"
)

// Service реализует конвейер создания заказа:
// received → products_resolved → stock_reserved → assembled → persisted,
// с терминальным rejected из любого шага. Списания по нескольким продуктам
// выполняются по принципу "всё или ничего": при отказе более позднего
// списания уже выполненные компенсируются возвратом на склад.
type Service struct {
	products domain.ProductRepository
	stocks   domain.StockRepository
	orders   domain.OrderRepository
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository
	logger   *log.Entry
	metrics  *metrics.OrderMetrics
}

// NewService создаёт рабочий экземпляр сервиса заказов.
func NewService(
	products domain.ProductRepository,
	stocks domain.StockRepository,
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "order-service")
	}
	return &Service{
		products: products,
		stocks:   stocks,
		orders:   orders,
		outbox:   outbox,
		timeline: timeline,
		logger:   logger,
		metrics:  metrics.NewOrderMetrics(),
	}
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(
	products domain.ProductRepository,
	stocks domain.StockRepository,
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Service {
	svc := NewService(products, stocks, orders, outbox, timeline, logger)
	svc.metrics = nil
	return svc
}

// CreateOrder создаёт заказ по списку номеров продуктов (дубли допустимы,
// порядок — порядок запроса покупателя) и времени регистрации.
func (s *Service) CreateOrder(productNumbers []string, registeredAt time.Time) (Response, error) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.RecordRequestStarted()
	}
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordRequestFinished()
			s.metrics.RecordCreateDuration(time.Since(start))
		}
	}()

	// ID выдаётся на входе: timeline шагов, включая отказ, ведётся по нему.
	orderID := uuid.NewString()
	s.recordStep(orderID, domain.OrderStepReceived)

	if len(productNumbers) == 0 {
		return Response{}, s.reject(orderID, "empty_order", domain.ErrProductNumbersRequired)
	}

	products, err := s.resolveProducts(productNumbers)
	if err != nil {
		return Response{}, s.reject(orderID, "product_not_found", err)
	}
	s.recordStep(orderID, domain.OrderStepResolved)

	demand, err := domain.AggregateStockDemand(products)
	if err != nil {
		return Response{}, s.reject(orderID, "unknown_product_type", err)
	}

	deducted, err := s.deductAll(demand)
	if err != nil {
		s.compensate(orderID, deducted, demand)
		reason := "stock_deduct_failed"
		if domain.IsInsufficientStock(err) {
			reason = "insufficient_stock"
			if s.metrics != nil {
				s.metrics.RecordStockInsufficient()
			}
		}
		return Response{}, s.reject(orderID, reason, err)
	}
	s.recordStep(orderID, domain.OrderStepReserved)

	order := domain.NewOrder(orderID, products, registeredAt)
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		s.compensate(orderID, deducted, demand)
		return Response{}, s.reject(orderID, "invalid_order", errs[0])
	}
	s.recordStep(orderID, domain.OrderStepAssembled)

	if err := s.orders.Create(order); err != nil {
		// Остатки уже списаны: возвращаем их до того, как ошибка уйдёт наружу.
		s.compensate(orderID, deducted, demand)
		return Response{}, s.reject(orderID, "persistence_failed", fmt.Errorf("persist order: %w", err))
	}
	s.recordStep(orderID, domain.OrderStepPersisted)

	s.emitOrderCreated(&order)
	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}
	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"total_minor": order.TotalMinor,
		"lines":       len(order.Lines),
	}).Info("order created")

	return newResponse(order), nil
}

// GetOrder возвращает представление заказа по идентификатору.
func (s *Service) GetOrder(id string) (Response, error) {
	order, err := s.orders.Get(id)
	if err != nil {
		return Response{}, err
	}
	return newResponse(order), nil
}

// ListOrders возвращает последние заказы.
func (s *Service) ListOrders(limit int) ([]Response, error) {
	orders, err := s.orders.List(limit)
	if err != nil {
		return nil, err
	}
	result := make([]Response, 0, len(orders))
	for _, order := range orders {
		result = append(result, newResponse(order))
	}
	return result, nil
}

// Timeline возвращает события жизненного цикла заказа.
func (s *Service) Timeline(orderID string) ([]domain.TimelineEvent, error) {
	if s.timeline == nil {
		return nil, nil
	}
	return s.timeline.List(orderID)
}

// resolveProducts выполняет один батчевый запрос по уникальным номерам и
// проецирует результат обратно на исходный список с дублями, сохраняя порядок.
// Номер без продукта в каталоге — ошибка, а не молчаливый пропуск.
func (s *Service) resolveProducts(productNumbers []string) ([]domain.Product, error) {
	distinct := make([]string, 0, len(productNumbers))
	seen := make(map[string]struct{}, len(productNumbers))
	for _, number := range productNumbers {
		if _, ok := seen[number]; ok {
			continue
		}
		seen[number] = struct{}{}
		distinct = append(distinct, number)
	}

	found, err := s.products.FindByProductNumbers(distinct)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}

	products := make([]domain.Product, 0, len(productNumbers))
	for _, number := range productNumbers {
		product, ok := found[number]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, number)
		}
		products = append(products, product)
	}
	return products, nil
}

// deductAll списывает агрегированный спрос по одному вызову на уникальный
// номер продукта, в отсортированном порядке. Возвращает номера, по которым
// списание уже прошло, чтобы вызывающий мог их компенсировать при ошибке.
func (s *Service) deductAll(demand map[string]int32) ([]string, error) {
	deducted := make([]string, 0, len(demand))
	for _, number := range domain.SortedProductNumbers(demand) {
		if err := s.deductWithRetry(number, demand[number]); err != nil {
			return deducted, err
		}
		deducted = append(deducted, number)
		if s.metrics != nil {
			s.metrics.RecordStockDeduction()
		}
	}
	return deducted, nil
}

// deductWithRetry повторяет списание с exponential backoff, пока склад
// отвечает конкурентным конфликтом; число попыток ограничено.
func (s *Service) deductWithRetry(productNumber string, qty int32) error {
	var err error
	for attempt := 0; attempt < maxDeductAttempts; attempt++ {
		if attempt > 0 {
			if s.metrics != nil {
				s.metrics.RecordStockRetry()
			}
			time.Sleep(deductRetryDelay * time.Duration(1<<uint(attempt-1)))
		}

		_, err = s.stocks.CheckAndDeduct(productNumber, qty)
		if err == nil {
			return nil
		}
		if !domain.IsStockConflict(err) {
			return err
		}
		s.logger.WithFields(log.Fields{
			"product_number": productNumber,
			"attempt":        attempt + 1,
		}).Warn("stock conflict detected, retrying")
	}
	return err
}

// compensate возвращает на склад всё, что успели списать в рамках заказа.
func (s *Service) compensate(orderID string, deducted []string, demand map[string]int32) {
	for _, number := range deducted {
		if err := s.stocks.Restore(number, demand[number]); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id":       orderID,
				"product_number": number,
			}).Error("stock restore failed")
			continue
		}
		if s.metrics != nil {
			s.metrics.RecordStockRestore()
		}
	}
}

// reject фиксирует терминальный отказ и возвращает исходную ошибку вызывающему.
func (s *Service) reject(orderID, reason string, err error) error {
	s.recordStepReason(orderID, domain.OrderStepRejected, eventTypeOrderRejected, err.Error())
	if s.metrics != nil {
		s.metrics.RecordOrderRejected(reason)
	}
	s.logger.WithError(err).WithFields(log.Fields{
		"order_id": orderID,
		"reason":   reason,
	}).Warn("order rejected")
	return err
}

func (s *Service) recordStep(orderID string, step domain.OrderStep) {
	s.recordStepReason(orderID, step, "OrderStepChanged", "")
}

func (s *Service) recordStepReason(orderID string, step domain.OrderStep, eventType, reason string) {
	if s.timeline == nil {
		return
	}
	event := domain.TimelineEvent{
		OrderID:  orderID,
		Type:     eventType,
		Step:     step,
		Reason:   reason,
		Occurred: time.Now().UTC(),
	}
	if err := s.timeline.Append(event); err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Warn("append timeline event failed")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordTimelineEvent()
	}
}

// emitOrderCreated ставит событие о созданном заказе в transactional outbox.
func (s *Service) emitOrderCreated(order *domain.Order) {
	if s.outbox == nil {
		return
	}

	numbers := make([]string, 0, len(order.Lines))
	for _, line := range order.Lines {
		numbers = append(numbers, line.ProductNumber)
	}
	payload, err := json.Marshal(map[string]interface{}{
		"order_id":        order.ID,
		"total_minor":     order.TotalMinor,
		"product_numbers": numbers,
		"registered_at":   order.RegisteredAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     eventTypeOrderCreated,
		Payload:       payload,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("enqueue event failed")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}
