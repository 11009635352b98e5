package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
)

func TestProductRepository_PostgresCreateAndFind(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewProductRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	seed := []domain.Product{
		{ProductNumber: "001", Type: domain.ProductTypeHandmade, SellingStatus: domain.SellingStatusSelling, Name: "americano", PriceMinor: 4000, CreatedAt: now, UpdatedAt: now},
		{ProductNumber: "002", Type: domain.ProductTypeHandmade, SellingStatus: domain.SellingStatusHold, Name: "latte", PriceMinor: 4500, CreatedAt: now, UpdatedAt: now},
		{ProductNumber: "003", Type: domain.ProductTypeBakery, SellingStatus: domain.SellingStatusStop, Name: "old croissant", PriceMinor: 3500, CreatedAt: now, UpdatedAt: now},
	}
	for _, p := range seed {
		if err := repo.Create(p); err != nil {
			t.Fatalf("create product %s: %v", p.ProductNumber, err)
		}
	}

	if err := repo.Create(seed[0]); !errors.Is(err, domain.ErrProductNumberConflict) {
		t.Fatalf("expected ErrProductNumberConflict, got %v", err)
	}

	found, err := repo.FindByProductNumbers([]string{"001", "003", "404"})
	if err != nil {
		t.Fatalf("find by numbers: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 products, got %d", len(found))
	}
	if found["001"].Name != "americano" {
		t.Fatalf("unexpected product payload: %+v", found["001"])
	}

	display, err := repo.FindBySellingStatusIn(domain.SellingStatusesForDisplay())
	if err != nil {
		t.Fatalf("find by selling status: %v", err)
	}
	if len(display) != 2 {
		t.Fatalf("expected 2 products on display, got %d", len(display))
	}

	latest, err := repo.LatestProductNumber()
	if err != nil {
		t.Fatalf("latest product number: %v", err)
	}
	if latest != "003" {
		t.Fatalf("expected latest number 003, got %s", latest)
	}
}

func TestProductRepository_PostgresEmptyCatalog(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewProductRepository(store)

	latest, err := repo.LatestProductNumber()
	if err != nil {
		t.Fatalf("latest product number on empty catalog: %v", err)
	}
	if latest != "" {
		t.Fatalf("expected empty latest number, got %s", latest)
	}

	found, err := repo.FindByProductNumbers(nil)
	if err != nil {
		t.Fatalf("find with empty input: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("expected empty result, got %d", len(found))
	}
}
