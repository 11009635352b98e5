package domain_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
)

func TestAggregateStockDemand(t *testing.T) {
	products := []domain.Product{
		makeProduct("001", domain.ProductTypeBottle, 1000),
		makeProduct("001", domain.ProductTypeBottle, 1000),
		makeProduct("001", domain.ProductTypeBottle, 1000),
		makeProduct("002", domain.ProductTypeBakery, 3000),
		makeProduct("003", domain.ProductTypeHandmade, 4000),
	}

	demand, err := domain.AggregateStockDemand(products)
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}

	if len(demand) != 2 {
		t.Fatalf("expected demand for 2 products, got %d", len(demand))
	}
	if demand["001"] != 3 {
		t.Fatalf("expected count 3 for 001, got %d", demand["001"])
	}
	if demand["002"] != 1 {
		t.Fatalf("expected count 1 for 002, got %d", demand["002"])
	}
	if _, ok := demand["003"]; ok {
		t.Fatal("handmade product must not appear in stock demand")
	}
}

func TestAggregateStockDemand_OnlyHandmade(t *testing.T) {
	products := []domain.Product{
		makeProduct("001", domain.ProductTypeHandmade, 4000),
		makeProduct("002", domain.ProductTypeHandmade, 4500),
	}

	demand, err := domain.AggregateStockDemand(products)
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if len(demand) != 0 {
		t.Fatalf("expected empty demand, got %v", demand)
	}
}

func TestAggregateStockDemand_UnknownType(t *testing.T) {
	products := []domain.Product{
		{ProductNumber: "001", Type: "mystery", Name: "x", PriceMinor: 100},
	}

	if _, err := domain.AggregateStockDemand(products); !errors.Is(err, domain.ErrUnknownProductType) {
		t.Fatalf("expected ErrUnknownProductType, got %v", err)
	}
}

func TestSortedProductNumbers(t *testing.T) {
	demand := map[string]int32{"003": 1, "001": 2, "002": 5}
	numbers := domain.SortedProductNumbers(demand)

	want := []string{"001", "002", "003"}
	if len(numbers) != len(want) {
		t.Fatalf("expected %d numbers, got %d", len(want), len(numbers))
	}
	for i := range want {
		if numbers[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], numbers[i])
		}
	}
}
