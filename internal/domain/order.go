package domain

import "time"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusCreated — заказ создан, остатки уже списаны.
	OrderStatusCreated OrderStatus = "created"
	// OrderStatusCompleted — заказ выдан покупателю.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCanceled — заказ отменён после создания.
	OrderStatusCanceled OrderStatus = "canceled"
)

// OrderLine представляет одну единицу товара в заказе.
// Три бутылки воды — это три отдельные позиции, а не qty=3:
// порядок и дубли позиций повторяют исходный запрос покупателя.
type OrderLine struct {
	ProductNumber string
	Name          string
	Type          ProductType
	PriceMinor    int64
}

// Order агрегирует позиции и итоговую сумму заказа.
type Order struct {
	ID           string
	Status       OrderStatus
	Lines        []OrderLine
	TotalMinor   int64
	RegisteredAt time.Time
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewOrder собирает заказ из разрешённого списка продуктов.
// Дубли и порядок продуктов сохраняются; сумма — это сумма цен всех позиций.
func NewOrder(id string, products []Product, registeredAt time.Time) Order {
	now := time.Now().UTC()
	lines := make([]OrderLine, 0, len(products))
	var total int64
	for _, p := range products {
		lines = append(lines, OrderLine{
			ProductNumber: p.ProductNumber,
			Name:          p.Name,
			Type:          p.Type,
			PriceMinor:    p.PriceMinor,
		})
		total += p.PriceMinor
	}

	return Order{
		ID:           id,
		Status:       OrderStatusCreated,
		Lines:        lines,
		TotalMinor:   total,
		RegisteredAt: registeredAt,
		Version:      0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if len(o.Lines) == 0 {
		errs = append(errs, ErrOrderLinesRequired)
	}
	if o.TotalMinor < 0 {
		errs = append(errs, ErrOrderTotalNegative)
	}
	if o.RegisteredAt.IsZero() {
		errs = append(errs, ErrOrderRegisteredAtRequired)
	}

	// Сверяем сумму заказа с суммой позиций.
	var calc int64
	for _, line := range o.Lines {
		if line.PriceMinor < 0 {
			errs = append(errs, ErrProductPriceNegative)
		}
		calc += line.PriceMinor
	}
	if calc != o.TotalMinor {
		errs = append(errs, ErrOrderTotalMismatch)
	}

	return errs
}
