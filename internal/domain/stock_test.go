package domain_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
)

func TestStockIsQuantityLessThan(t *testing.T) {
	stock := domain.Stock{ProductNumber: "001", Quantity: 1}
	if !stock.IsQuantityLessThan(2) {
		t.Fatal("expected quantity 1 to be less than 2")
	}
	if stock.IsQuantityLessThan(1) {
		t.Fatal("quantity 1 is not less than 1")
	}
}

func TestStockDeduct(t *testing.T) {
	stock := domain.Stock{ProductNumber: "001", Quantity: 2}

	if err := stock.Deduct(2); err != nil {
		t.Fatalf("deduct failed: %v", err)
	}
	if stock.Quantity != 0 {
		t.Fatalf("expected quantity 0, got %d", stock.Quantity)
	}

	// Списание с нулевого остатка отклоняется и остаток не меняет.
	err := stock.Deduct(1)
	if !domain.IsInsufficientStock(err) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}
	if stock.Quantity != 0 {
		t.Fatalf("failed deduct must not mutate quantity, got %d", stock.Quantity)
	}
}

func TestStockDeduct_InvalidQty(t *testing.T) {
	stock := domain.Stock{ProductNumber: "001", Quantity: 5}
	if err := stock.Deduct(0); !errors.Is(err, domain.ErrStockQtyInvalid) {
		t.Fatalf("expected ErrStockQtyInvalid, got %v", err)
	}
	if err := stock.Deduct(-3); !errors.Is(err, domain.ErrStockQtyInvalid) {
		t.Fatalf("expected ErrStockQtyInvalid, got %v", err)
	}
}

func TestStockRestore(t *testing.T) {
	stock := domain.Stock{ProductNumber: "001", Quantity: 1}
	if err := stock.Restore(2); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if stock.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", stock.Quantity)
	}
}

func TestInsufficientStockError_CarriesProductNumbers(t *testing.T) {
	err := &domain.InsufficientStockError{ProductNumbers: []string{"001", "002"}}
	if !errors.Is(err, domain.ErrStockInsufficient) {
		t.Fatal("typed error must match ErrStockInsufficient sentinel")
	}

	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatal("expected errors.As to extract InsufficientStockError")
	}
	if len(insufficient.ProductNumbers) != 2 {
		t.Fatalf("expected 2 product numbers, got %v", insufficient.ProductNumbers)
	}
}
