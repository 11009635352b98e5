package memory_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
	"github.com/vladislavdragonenkov/kiosk/internal/storage/memory"
)

func newStockRepo(t *testing.T, quantities map[string]int32) domain.StockRepository {
	t.Helper()
	repo := memory.NewStockRepository()
	for number, qty := range quantities {
		if err := repo.Upsert(domain.Stock{ProductNumber: number, Quantity: qty}); err != nil {
			t.Fatalf("upsert %s failed: %v", number, err)
		}
	}
	return repo
}

func TestStockRepository_CheckAndDeduct(t *testing.T) {
	repo := newStockRepo(t, map[string]int32{"001": 2})

	left, err := repo.CheckAndDeduct("001", 2)
	if err != nil {
		t.Fatalf("deduct failed: %v", err)
	}
	if left != 0 {
		t.Fatalf("expected remaining 0, got %d", left)
	}

	// Остаток исчерпан: следующее списание отклоняется без мутации.
	if _, err := repo.CheckAndDeduct("001", 1); !domain.IsInsufficientStock(err) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	stocks, err := repo.FindByProductNumbers([]string{"001"})
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if stocks["001"].Quantity != 0 {
		t.Fatalf("expected quantity 0 after rejected deduct, got %d", stocks["001"].Quantity)
	}
}

func TestStockRepository_CheckAndDeduct_NotFound(t *testing.T) {
	repo := newStockRepo(t, nil)
	if _, err := repo.CheckAndDeduct("404", 1); !errors.Is(err, domain.ErrStockNotFound) {
		t.Fatalf("expected ErrStockNotFound, got %v", err)
	}
}

func TestStockRepository_CheckAndDeduct_InvalidQty(t *testing.T) {
	repo := newStockRepo(t, map[string]int32{"001": 5})
	if _, err := repo.CheckAndDeduct("001", 0); !errors.Is(err, domain.ErrStockQtyInvalid) {
		t.Fatalf("expected ErrStockQtyInvalid, got %v", err)
	}
}

func TestStockRepository_Restore(t *testing.T) {
	repo := newStockRepo(t, map[string]int32{"001": 1})

	if _, err := repo.CheckAndDeduct("001", 1); err != nil {
		t.Fatalf("deduct failed: %v", err)
	}
	if err := repo.Restore("001", 1); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	stocks, err := repo.FindByProductNumbers([]string{"001"})
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if stocks["001"].Quantity != 1 {
		t.Fatalf("expected quantity 1 after restore, got %d", stocks["001"].Quantity)
	}
}

// Гонка из исходной задачи: N конкурентных списаний по одному номеру
// при остатке Q < N. Ровно Q должны пройти, остальные — получить отказ,
// отрицательный остаток не наблюдаем ни в один момент.
func TestStockRepository_ConcurrentDeducts(t *testing.T) {
	const (
		workers = 100
		initial = 37
	)
	repo := newStockRepo(t, map[string]int32{"001": initial})

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			left, err := repo.CheckAndDeduct("001", 1)
			if err == nil && left < 0 {
				t.Errorf("observed negative quantity %d", left)
			}
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
		t.Fatalf("expected exactly %d successful deducts, got %d", initial, succeeded)
	}
	if rejected != workers-initial {
		t.Fatalf("expected %d rejections, got %d", workers-initial, rejected)
	}

	stocks, err := repo.FindByProductNumbers([]string{"001"})
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if stocks["001"].Quantity != 0 {
		t.Fatalf("expected final quantity 0, got %d", stocks["001"].Quantity)
	}
}

// Списания по разным номерам не конкурируют за одну блокировку:
// суммарный эффект должен сойтись для каждого номера независимо.
func TestStockRepository_ConcurrentDisjointProducts(t *testing.T) {
	repo := newStockRepo(t, map[string]int32{"001": 50, "002": 50})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := repo.CheckAndDeduct("001", 1); err != nil {
				t.Errorf("deduct 001 failed: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := repo.CheckAndDeduct("002", 1); err != nil {
				t.Errorf("deduct 002 failed: %v", err)
			}
		}()
	}
	wg.Wait()

	stocks, err := repo.FindByProductNumbers([]string{"001", "002"})
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if stocks["001"].Quantity != 0 || stocks["002"].Quantity != 0 {
		t.Fatalf("expected both quantities 0, got %d and %d", stocks["001"].Quantity, stocks["002"].Quantity)
	}
}
