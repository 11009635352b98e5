package domain_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
)

func TestProductTypeStockTracked(t *testing.T) {
	cases := []struct {
		name    string
		typ     domain.ProductType
		tracked bool
	}{
		{name: "handmade not tracked", typ: domain.ProductTypeHandmade, tracked: false},
		{name: "bottle tracked", typ: domain.ProductTypeBottle, tracked: true},
		{name: "bakery tracked", typ: domain.ProductTypeBakery, tracked: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tracked, err := tc.typ.StockTracked()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tracked != tc.tracked {
				t.Fatalf("expected tracked=%v for %s, got %v", tc.tracked, tc.typ, tracked)
			}
		})
	}
}

func TestProductTypeStockTracked_Unknown(t *testing.T) {
	_, err := domain.ProductType("espresso-machine").StockTracked()
	if !errors.Is(err, domain.ErrUnknownProductType) {
		t.Fatalf("expected ErrUnknownProductType, got %v", err)
	}
}

func TestSellingStatusesForDisplay(t *testing.T) {
	statuses := domain.SellingStatusesForDisplay()
	if len(statuses) != 2 {
		t.Fatalf("expected 2 display statuses, got %d", len(statuses))
	}
	for _, s := range statuses {
		if s == domain.SellingStatusStop {
			t.Fatal("stop_selling must not be displayed")
		}
	}
}

func TestProductValidate(t *testing.T) {
	product := domain.Product{
		ProductNumber: "001",
		Type:          domain.ProductTypeHandmade,
		SellingStatus: domain.SellingStatusSelling,
		Name:          "americano",
		PriceMinor:    4000,
	}
	if errs := product.Validate(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}

	bad := product
	bad.ProductNumber = ""
	bad.Type = "unknown"
	bad.PriceMinor = -1
	if errs := bad.Validate(); len(errs) != 3 {
		t.Fatalf("expected 3 validation errors, got %v", errs)
	}
}
