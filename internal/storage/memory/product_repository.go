package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
)

// productRepositoryInMemory — простая in-memory реализация каталога продуктов.
type productRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Product
	// order хранит номера в порядке создания, чтобы LatestProductNumber
	// возвращал последний выданный номер без разбора ключей карты.
	order []string
}

// NewProductRepository возвращает in-memory каталог для локальной разработки и тестов.
func NewProductRepository() domain.ProductRepository {
	return &productRepositoryInMemory{
		items: make(map[string]domain.Product),
	}
}

// Create сохраняет новый продукт, если номер ещё не занят.
func (r *productRepositoryInMemory) Create(product domain.Product) error {
	if errs := product.Validate(); len(errs) != 0 {
		return errs[0]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[product.ProductNumber]; exists {
		return domain.ErrProductNumberConflict
	}
	r.items[product.ProductNumber] = product
	r.order = append(r.order, product.ProductNumber)
	return nil
}

// FindByProductNumbers выполняет батчевый поиск по множеству номеров.
// Отсутствующие номера просто не попадают в результат: политику
// "нет продукта — ошибка" применяет вызывающий сервис.
func (r *productRepositoryInMemory) FindByProductNumbers(productNumbers []string) (map[string]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]domain.Product, len(productNumbers))
	for _, number := range productNumbers {
		if product, ok := r.items[number]; ok {
			result[number] = product
		}
	}
	return result, nil
}

// FindBySellingStatusIn возвращает продукты в заданных статусах продажи
// в порядке их создания.
func (r *productRepositoryInMemory) FindBySellingStatusIn(statuses []domain.ProductSellingStatus) ([]domain.Product, error) {
	wanted := make(map[domain.ProductSellingStatus]struct{}, len(statuses))
	for _, s := range statuses {
		wanted[s] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.order))
	for _, number := range r.order {
		product := r.items[number]
		if _, ok := wanted[product.SellingStatus]; ok {
			result = append(result, product)
		}
	}
	return result, nil
}

// LatestProductNumber возвращает последний выданный номер или пустую строку.
func (r *productRepositoryInMemory) LatestProductNumber() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return "", nil
	}
	return r.order[len(r.order)-1], nil
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
