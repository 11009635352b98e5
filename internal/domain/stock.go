package domain

import "time"

// Stock хранит доступное количество товара по номеру продукта.
// Quantity никогда не уходит в минус: проверка и списание выполняются
// одной неделимой операцией (см. StockRepository.CheckAndDeduct).
type Stock struct {
	ProductNumber string
	Quantity      int32
	// Version используется PostgreSQL-реализацией для optimistic locking.
	Version   int64
	UpdatedAt time.Time
}

// IsQuantityLessThan сообщает, меньше ли остаток запрошенного количества.
func (s *Stock) IsQuantityLessThan(qty int32) bool {
	return s.Quantity < qty
}

// Deduct списывает qty единиц. Остаток проверяется до мутации:
// при нехватке состояние не меняется.
func (s *Stock) Deduct(qty int32) error {
	if qty <= 0 {
		return ErrStockQtyInvalid
	}
	if s.IsQuantityLessThan(qty) {
		return &InsufficientStockError{ProductNumbers: []string{s.ProductNumber}}
	}
	s.Quantity -= qty
	return nil
}

// Restore возвращает qty единиц на склад (компенсация неудачного заказа).
func (s *Stock) Restore(qty int32) error {
	if qty <= 0 {
		return ErrStockQtyInvalid
	}
	s.Quantity += qty
	return nil
}

// Validate проверяет базовые инварианты складской записи.
func (s *Stock) Validate() []error {
	var errs []error

	if s.ProductNumber == "" {
		errs = append(errs, ErrProductNumberRequired)
	}
	if s.Quantity < 0 {
		errs = append(errs, ErrStockQuantityNegative)
	}

	return errs
}
