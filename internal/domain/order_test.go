package domain_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
)

// helper для создания продуктов каталога в тестах.
func makeProduct(number string, typ domain.ProductType, price int64) domain.Product {
	now := time.Now().UTC()
	return domain.Product{
		ProductNumber: number,
		Type:          typ,
		SellingStatus: domain.SellingStatusSelling,
		Name:          "product-" + number,
		PriceMinor:    price,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestNewOrder_PreservesDuplicatesAndOrder(t *testing.T) {
	registeredAt := time.Now().UTC()
	products := []domain.Product{
		makeProduct("001", domain.ProductTypeHandmade, 4000),
		makeProduct("001", domain.ProductTypeHandmade, 4000),
		makeProduct("002", domain.ProductTypeBottle, 4500),
	}

	order := domain.NewOrder("order-1", products, registeredAt)

	if len(order.Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(order.Lines))
	}
	wantNumbers := []string{"001", "001", "002"}
	for i, line := range order.Lines {
		if line.ProductNumber != wantNumbers[i] {
			t.Fatalf("line %d: expected product %s, got %s", i, wantNumbers[i], line.ProductNumber)
		}
	}
	if order.Status != domain.OrderStatusCreated {
		t.Fatalf("expected status created, got %s", order.Status)
	}
	if !order.RegisteredAt.Equal(registeredAt) {
		t.Fatalf("expected registeredAt %v, got %v", registeredAt, order.RegisteredAt)
	}
}

func TestNewOrder_TotalIndependentOfLineOrder(t *testing.T) {
	registeredAt := time.Now().UTC()
	forward := []domain.Product{
		makeProduct("001", domain.ProductTypeHandmade, 4000),
		makeProduct("001", domain.ProductTypeHandmade, 4000),
		makeProduct("002", domain.ProductTypeBottle, 4500),
	}
	reversed := []domain.Product{forward[2], forward[1], forward[0]}

	a := domain.NewOrder("order-a", forward, registeredAt)
	b := domain.NewOrder("order-b", reversed, registeredAt)

	if a.TotalMinor != 12500 {
		t.Fatalf("expected total 12500, got %d", a.TotalMinor)
	}
	if a.TotalMinor != b.TotalMinor {
		t.Fatalf("total must not depend on line order: %d vs %d", a.TotalMinor, b.TotalMinor)
	}
}

func TestOrderValidateInvariants(t *testing.T) {
	order := domain.NewOrder("order-1", []domain.Product{
		makeProduct("001", domain.ProductTypeBottle, 1000),
	}, time.Now().UTC())
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}

	cases := []struct {
		name string
		mut  func(o *domain.Order)
	}{
		{name: "no lines", mut: func(o *domain.Order) { o.Lines = nil }},
		{name: "total mismatch", mut: func(o *domain.Order) { o.TotalMinor = 999 }},
		{name: "no registered_at", mut: func(o *domain.Order) { o.RegisteredAt = time.Time{} }},
		{name: "negative line price", mut: func(o *domain.Order) { o.Lines[0].PriceMinor = -5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mut := domain.NewOrder("order-1", []domain.Product{
				makeProduct("001", domain.ProductTypeBottle, 1000),
			}, time.Now().UTC())
			tc.mut(&mut)
			if len(mut.ValidateInvariants()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}
