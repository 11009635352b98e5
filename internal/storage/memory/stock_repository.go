package memory

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
)

// stockEntry держит складскую запись под собственным мьютексом.
// Блокировка на уровне записи: конкурентные списания одного номера
// сериализуются, списания разных номеров идут параллельно.
type stockEntry struct {
	mu    sync.Mutex
	stock domain.Stock
}

// stockRepositoryInMemory — in-memory реестр остатков.
type stockRepositoryInMemory struct {
	mu      sync.RWMutex
	entries map[string]*stockEntry
}

// NewStockRepository возвращает in-memory реализацию StockRepository.
func NewStockRepository() domain.StockRepository {
	return &stockRepositoryInMemory{
		entries: make(map[string]*stockEntry),
	}
}

// Upsert создаёт или заменяет складскую запись.
func (r *stockRepositoryInMemory) Upsert(stock domain.Stock) error {
	if errs := stock.Validate(); len(errs) != 0 {
		return errs[0]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[stock.ProductNumber]
	if !ok {
		r.entries[stock.ProductNumber] = &stockEntry{stock: stock}
		return nil
	}

	entry.mu.Lock()
	entry.stock = stock
	entry.mu.Unlock()
	return nil
}

// FindByProductNumbers возвращает копии складских записей по ключу номера продукта.
func (r *stockRepositoryInMemory) FindByProductNumbers(productNumbers []string) (map[string]domain.Stock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]domain.Stock, len(productNumbers))
	for _, number := range productNumbers {
		entry, ok := r.entries[number]
		if !ok {
			continue
		}
		entry.mu.Lock()
		result[number] = entry.stock
		entry.mu.Unlock()
	}
	return result, nil
}

// CheckAndDeduct атомарно проверяет остаток и списывает qty единиц.
// Мьютекс записи удерживается на всю последовательность read-compare-write,
// поэтому два конкурирующих списания одного номера не могут оба пройти
// проверку и увести остаток в минус.
func (r *stockRepositoryInMemory) CheckAndDeduct(productNumber string, qty int32) (int32, error) {
	if qty <= 0 {
		return 0, domain.ErrStockQtyInvalid
	}

	entry, err := r.entry(productNumber)
	if err != nil {
		return 0, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := entry.stock.Deduct(qty); err != nil {
		return entry.stock.Quantity, err
	}
	entry.stock.Version++
	entry.stock.UpdatedAt = time.Now().UTC()
	return entry.stock.Quantity, nil
}

// Restore возвращает qty единиц на склад (компенсация).
func (r *stockRepositoryInMemory) Restore(productNumber string, qty int32) error {
	if qty <= 0 {
		return domain.ErrStockQtyInvalid
	}

	entry, err := r.entry(productNumber)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := entry.stock.Restore(qty); err != nil {
		return err
	}
	entry.stock.Version++
	entry.stock.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *stockRepositoryInMemory) entry(productNumber string) (*stockEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[productNumber]
	if !ok {
		return nil, domain.ErrStockNotFound
	}
	return entry, nil
}

var _ domain.StockRepository = (*stockRepositoryInMemory)(nil)
