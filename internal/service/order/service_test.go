package order_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
	"github.com/vladislavdragonenkov/kiosk/internal/service/order"
	"github.com/vladislavdragonenkov/kiosk/internal/storage/memory"
)

// deductCall фиксирует один вызов CheckAndDeduct для проверок в тестах.
type deductCall struct {
	productNumber string
	qty           int32
}

// countingStockRepo оборачивает реальный склад и считает обращения к нему.
type countingStockRepo struct {
	domain.StockRepository

	mu    sync.Mutex
	calls []deductCall
}

func (r *countingStockRepo) CheckAndDeduct(productNumber string, qty int32) (int32, error) {
	r.mu.Lock()
	r.calls = append(r.calls, deductCall{productNumber: productNumber, qty: qty})
	r.mu.Unlock()
	return r.StockRepository.CheckAndDeduct(productNumber, qty)
}

func (r *countingStockRepo) deductCalls() []deductCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]deductCall(nil), r.calls...)
}

// failingOrderRepo имитирует отказ хранилища заказов при сохранении.
type failingOrderRepo struct {
	domain.OrderRepository
	createErr error
}

func (r *failingOrderRepo) Create(order domain.Order) error {
	return r.createErr
}

// conflictingStockRepo возвращает заданное число конфликтов перед успехом.
type conflictingStockRepo struct {
	domain.StockRepository

	mu        sync.Mutex
	conflicts int
}

func (r *conflictingStockRepo) CheckAndDeduct(productNumber string, qty int32) (int32, error) {
	r.mu.Lock()
	if r.conflicts > 0 {
		r.conflicts--
		r.mu.Unlock()
		return 0, domain.ErrStockConflict
	}
	r.mu.Unlock()
	return r.StockRepository.CheckAndDeduct(productNumber, qty)
}

type fixture struct {
	products domain.ProductRepository
	stocks   domain.StockRepository
	orders   domain.OrderRepository
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		products: memory.NewProductRepository(),
		stocks:   memory.NewStockRepository(),
		orders:   memory.NewOrderRepository(),
		outbox:   memory.NewOutboxRepository(),
		timeline: memory.NewTimelineRepository(),
	}

	seed := []domain.Product{
		{ProductNumber: "001", Type: domain.ProductTypeHandmade, SellingStatus: domain.SellingStatusSelling, Name: "americano", PriceMinor: 4000},
		{ProductNumber: "002", Type: domain.ProductTypeHandmade, SellingStatus: domain.SellingStatusSelling, Name: "latte", PriceMinor: 4500},
		{ProductNumber: "003", Type: domain.ProductTypeBottle, SellingStatus: domain.SellingStatusSelling, Name: "water", PriceMinor: 1000},
		{ProductNumber: "004", Type: domain.ProductTypeBakery, SellingStatus: domain.SellingStatusSelling, Name: "croissant", PriceMinor: 3500},
	}
	for _, p := range seed {
		if err := f.products.Create(p); err != nil {
			t.Fatalf("seed product %s failed: %v", p.ProductNumber, err)
		}
	}
	for _, s := range []domain.Stock{
		{ProductNumber: "003", Quantity: 5},
		{ProductNumber: "004", Quantity: 2},
	} {
		if err := f.stocks.Upsert(s); err != nil {
			t.Fatalf("seed stock %s failed: %v", s.ProductNumber, err)
		}
	}
	return f
}

func (f *fixture) service() *order.Service {
	return order.NewServiceWithoutMetrics(f.products, f.stocks, f.orders, f.outbox, f.timeline, nil)
}

func (f *fixture) quantity(t *testing.T, productNumber string) int32 {
	t.Helper()
	stocks, err := f.stocks.FindByProductNumbers([]string{productNumber})
	if err != nil {
		t.Fatalf("find stock failed: %v", err)
	}
	return stocks[productNumber].Quantity
}

func TestCreateOrder_Success(t *testing.T) {
	f := newFixture(t)
	svc := f.service()
	registeredAt := time.Now().UTC()

	resp, err := svc.CreateOrder([]string{"001", "003"}, registeredAt)
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if len(resp.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(resp.Lines))
	}
	if resp.TotalMinor != 5000 {
		t.Fatalf("expected total 5000, got %d", resp.TotalMinor)
	}
	if !resp.RegisteredAt.Equal(registeredAt) {
		t.Fatalf("expected registeredAt %v, got %v", registeredAt, resp.RegisteredAt)
	}
	if resp.Status != string(domain.OrderStatusCreated) {
		t.Fatalf("expected status created, got %s", resp.Status)
	}

	stored, err := f.orders.Get(resp.ID)
	if err != nil {
		t.Fatalf("order not persisted: %v", err)
	}
	if stored.TotalMinor != 5000 {
		t.Fatalf("persisted total mismatch: %d", stored.TotalMinor)
	}

	// Событие о созданном заказе поставлено в outbox.
	pending, err := f.outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull outbox failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(pending))
	}
	if pending[0].EventType != "OrderCreated" {
		t.Fatalf("expected OrderCreated event, got %s", pending[0].EventType)
	}
}

func TestCreateOrder_DuplicatesResolvedInOrder(t *testing.T) {
	f := newFixture(t)
	svc := f.service()

	resp, err := svc.CreateOrder([]string{"001", "001", "002"}, time.Now().UTC())
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// Каталог опрашивается по двум уникальным номерам, но заказ хранит
	// три позиции в порядке запроса.
	if len(resp.Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(resp.Lines))
	}
	want := []string{"001", "001", "002"}
	for i, line := range resp.Lines {
		if line.ProductNumber != want[i] {
			t.Fatalf("line %d: expected %s, got %s", i, want[i], line.ProductNumber)
		}
	}
	if resp.TotalMinor != 12500 {
		t.Fatalf("expected total 12500, got %d", resp.TotalMinor)
	}
}

func TestCreateOrder_NonTrackedNeverTouchesLedger(t *testing.T) {
	f := newFixture(t)
	counting := &countingStockRepo{StockRepository: f.stocks}
	svc := order.NewServiceWithoutMetrics(f.products, counting, f.orders, f.outbox, f.timeline, nil)

	if _, err := svc.CreateOrder([]string{"001", "002", "001"}, time.Now().UTC()); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if calls := counting.deductCalls(); len(calls) != 0 {
		t.Fatalf("handmade-only order must not touch the stock ledger, got %d calls", len(calls))
	}
}

func TestCreateOrder_AggregatesDemandPerProduct(t *testing.T) {
	f := newFixture(t)
	counting := &countingStockRepo{StockRepository: f.stocks}
	svc := order.NewServiceWithoutMetrics(f.products, counting, f.orders, f.outbox, f.timeline, nil)

	if _, err := svc.CreateOrder([]string{"003", "003", "003"}, time.Now().UTC()); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	calls := counting.deductCalls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly 1 deduct call, got %d", len(calls))
	}
	if calls[0].productNumber != "003" || calls[0].qty != 3 {
		t.Fatalf("expected deduct(003, 3), got deduct(%s, %d)", calls[0].productNumber, calls[0].qty)
	}
	if left := f.quantity(t, "003"); left != 2 {
		t.Fatalf("expected remaining 2, got %d", left)
	}
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	svc := f.service()

	// Запас 004 равен 2, запрошено 3.
	_, err := svc.CreateOrder([]string{"004", "004", "004"}, time.Now().UTC())
	if !domain.IsInsufficientStock(err) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	if left := f.quantity(t, "004"); left != 2 {
		t.Fatalf("rejected order must not change stock, got %d", left)
	}
	if _, err := f.orders.Get("any"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("no order must be persisted, got %v", err)
	}
}

func TestCreateOrder_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	svc := f.service()

	// 003 хватает (5 >= 1), 004 не хватает (2 < 3): списание 003
	// должно быть компенсировано и оба остатка не измениться.
	_, err := svc.CreateOrder([]string{"003", "004", "004", "004"}, time.Now().UTC())
	if !domain.IsInsufficientStock(err) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	if left := f.quantity(t, "003"); left != 5 {
		t.Fatalf("expected 003 quantity restored to 5, got %d", left)
	}
	if left := f.quantity(t, "004"); left != 2 {
		t.Fatalf("expected 004 quantity unchanged at 2, got %d", left)
	}
}

func TestCreateOrder_EmptyRequest(t *testing.T) {
	f := newFixture(t)
	svc := f.service()

	if _, err := svc.CreateOrder(nil, time.Now().UTC()); !errors.Is(err, domain.ErrProductNumbersRequired) {
		t.Fatalf("expected ErrProductNumbersRequired, got %v", err)
	}
}

func TestCreateOrder_ProductNotFound(t *testing.T) {
	f := newFixture(t)
	svc := f.service()

	if _, err := svc.CreateOrder([]string{"001", "404"}, time.Now().UTC()); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCreateOrder_PersistFailureCompensatesStock(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("storage down")
	svc := order.NewServiceWithoutMetrics(
		f.products,
		f.stocks,
		&failingOrderRepo{OrderRepository: f.orders, createErr: boom},
		f.outbox,
		f.timeline,
		nil,
	)

	_, err := svc.CreateOrder([]string{"003", "003"}, time.Now().UTC())
	if !errors.Is(err, boom) {
		t.Fatalf("expected storage error, got %v", err)
	}

	// Списанные остатки возвращены: покупатель не должен "терять" сток
	// без соответствующего заказа.
	if left := f.quantity(t, "003"); left != 5 {
		t.Fatalf("expected stock restored to 5, got %d", left)
	}
}

func TestCreateOrder_RetriesOnStockConflict(t *testing.T) {
	f := newFixture(t)
	conflicting := &conflictingStockRepo{StockRepository: f.stocks, conflicts: 2}
	svc := order.NewServiceWithoutMetrics(f.products, conflicting, f.orders, f.outbox, f.timeline, nil)

	if _, err := svc.CreateOrder([]string{"003"}, time.Now().UTC()); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if left := f.quantity(t, "003"); left != 4 {
		t.Fatalf("expected remaining 4, got %d", left)
	}
}

func TestCreateOrder_ConflictRetriesExhausted(t *testing.T) {
	f := newFixture(t)
	conflicting := &conflictingStockRepo{StockRepository: f.stocks, conflicts: 100}
	svc := order.NewServiceWithoutMetrics(f.products, conflicting, f.orders, f.outbox, f.timeline, nil)

	if _, err := svc.CreateOrder([]string{"003"}, time.Now().UTC()); !domain.IsStockConflict(err) {
		t.Fatalf("expected stock conflict after exhausted retries, got %v", err)
	}
	if left := f.quantity(t, "003"); left != 5 {
		t.Fatalf("expected stock unchanged at 5, got %d", left)
	}
}

// Гонка из исходной задачи на уровне всего конвейера: N конкурентных
// заказов по одной единице при остатке Q < N.
func TestCreateOrder_ConcurrentOverlappingOrders(t *testing.T) {
	const (
		workers = 20
		initial = 5
	)
	f := newFixture(t)
	if err := f.stocks.Upsert(domain.Stock{ProductNumber: "003", Quantity: initial}); err != nil {
		t.Fatalf("seed stock failed: %v", err)
	}
	svc := f.service()

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateOrder([]string{"003"}, time.Now().UTC())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case domain.IsInsufficientStock(err):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if succeeded != initial {
		t.Fatalf("expected exactly %d successful orders, got %d", initial, succeeded)
	}
	if rejected != workers-initial {
		t.Fatalf("expected %d rejections, got %d", workers-initial, rejected)
	}
	if left := f.quantity(t, "003"); left != 0 {
		t.Fatalf("expected final quantity 0, got %d", left)
	}

	orders, err := f.orders.List(0)
	if err != nil {
		t.Fatalf("list orders failed: %v", err)
	}
	if len(orders) != initial {
		t.Fatalf("expected %d persisted orders, got %d", initial, len(orders))
	}
}

func TestCreateOrder_TimelineRecordsSteps(t *testing.T) {
	f := newFixture(t)
	svc := f.service()

	resp, err := svc.CreateOrder([]string{"003"}, time.Now().UTC())
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	events, err := svc.Timeline(resp.ID)
	if err != nil {
		t.Fatalf("timeline failed: %v", err)
	}
	want := []domain.OrderStep{
		domain.OrderStepReceived,
		domain.OrderStepResolved,
		domain.OrderStepReserved,
		domain.OrderStepAssembled,
		domain.OrderStepPersisted,
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d timeline events, got %d", len(want), len(events))
	}
	for i, step := range want {
		if events[i].Step != step {
			t.Fatalf("event %d: expected step %s, got %s", i, step, events[i].Step)
		}
	}
}
