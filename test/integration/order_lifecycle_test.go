package integration

import (
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
	"github.com/vladislavdragonenkov/kiosk/internal/service/order"
	"github.com/vladislavdragonenkov/kiosk/internal/service/product"
	"github.com/vladislavdragonenkov/kiosk/internal/storage/memory"
)

// OrderLifecycleTestSuite тестирует полный жизненный цикл заказа:
// каталог, остатки, конвейер создания, timeline и outbox.
type OrderLifecycleTestSuite struct {
	suite.Suite
	stocks     domain.StockRepository
	outbox     domain.OutboxRepository
	orderSvc   *order.Service
	productSvc *product.Service
}

func (suite *OrderLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	logger := baseLogger.WithField("component", "integration-test")

	products := memory.NewProductRepository()
	suite.stocks = memory.NewStockRepository()
	suite.outbox = memory.NewOutboxRepository()

	suite.orderSvc = order.NewServiceWithoutMetrics(
		products,
		suite.stocks,
		memory.NewOrderRepository(),
		suite.outbox,
		memory.NewTimelineRepository(),
		logger,
	)
	suite.productSvc = product.NewService(products, logger)
}

// seedCatalog создаёт витрину: два напитка ручной работы и бутилированную
// воду с остатком 5. Номера выдаются последовательно: 001, 002, 003.
func (suite *OrderLifecycleTestSuite) seedCatalog() {
	for _, req := range []product.CreateRequest{
		{Type: domain.ProductTypeHandmade, SellingStatus: domain.SellingStatusSelling, Name: "американо", PriceMinor: 4000},
		{Type: domain.ProductTypeHandmade, SellingStatus: domain.SellingStatusSelling, Name: "латте", PriceMinor: 4500},
		{Type: domain.ProductTypeBottle, SellingStatus: domain.SellingStatusSelling, Name: "вода", PriceMinor: 1000},
	} {
		_, err := suite.productSvc.CreateProduct(req)
		require.NoError(suite.T(), err)
	}
	require.NoError(suite.T(), suite.stocks.Upsert(domain.Stock{ProductNumber: "003", Quantity: 5}))
}

func (suite *OrderLifecycleTestSuite) TestFullLifecycle() {
	suite.seedCatalog()

	resp, err := suite.orderSvc.CreateOrder([]string{"001", "001", "003"}, time.Now().UTC())
	require.NoError(suite.T(), err)
	require.Len(suite.T(), resp.Lines, 3)
	require.Equal(suite.T(), int64(9000), resp.TotalMinor)

	// Заказ сохранён и читается обратно.
	stored, err := suite.orderSvc.GetOrder(resp.ID)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), resp.TotalMinor, stored.TotalMinor)
	require.Equal(suite.T(), "001", stored.Lines[0].ProductNumber)
	require.Equal(suite.T(), "003", stored.Lines[2].ProductNumber)

	// Остаток воды списан, напитки ручной работы учёт не трогают.
	stocks, err := suite.stocks.FindByProductNumbers([]string{"003"})
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), int32(4), stocks["003"].Quantity)

	// Timeline фиксирует весь путь до persisted.
	events, err := suite.orderSvc.Timeline(resp.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), events, 5)
	require.Equal(suite.T(), domain.OrderStepReceived, events[0].Step)
	require.Equal(suite.T(), domain.OrderStepPersisted, events[len(events)-1].Step)

	// Событие о заказе поставлено в outbox.
	pending, err := suite.outbox.PullPending(10)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), pending, 1)
	require.Equal(suite.T(), "OrderCreated", pending[0].EventType)
}

func (suite *OrderLifecycleTestSuite) TestRejectedOrderLeavesNoTrace() {
	suite.seedCatalog()

	_, err := suite.orderSvc.CreateOrder(
		[]string{"003", "003", "003", "003", "003", "003"},
		time.Now().UTC(),
	)
	require.Error(suite.T(), err)
	require.True(suite.T(), domain.IsInsufficientStock(err))

	// Остаток не изменился, заказов и событий нет.
	stocks, err := suite.stocks.FindByProductNumbers([]string{"003"})
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), int32(5), stocks["003"].Quantity)

	orders, err := suite.orderSvc.ListOrders(10)
	require.NoError(suite.T(), err)
	require.Empty(suite.T(), orders)

	pending, err := suite.outbox.PullPending(10)
	require.NoError(suite.T(), err)
	require.Empty(suite.T(), pending)
}

func (suite *OrderLifecycleTestSuite) TestConcurrentOrdersNeverOversell() {
	suite.seedCatalog()

	const workers = 15

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := suite.orderSvc.CreateOrder([]string{"003"}, time.Now().UTC())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.True(suite.T(), domain.IsInsufficientStock(err))
		}
	}
	require.Equal(suite.T(), 5, succeeded)

	stocks, err := suite.stocks.FindByProductNumbers([]string{"003"})
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), int32(0), stocks["003"].Quantity)
}

func TestOrderLifecycleTestSuite(t *testing.T) {
	suite.Run(t, new(OrderLifecycleTestSuite))
}
