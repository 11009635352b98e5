package domain

import (
	"fmt"
	"time"
)

// ProductType описывает тип продукта в киоске.
type ProductType string

const (
	// ProductTypeHandmade — напиток, который готовится на месте; складской учёт не ведётся.
	ProductTypeHandmade ProductType = "handmade"
	// ProductTypeBottle — бутилированный напиток с конечным запасом на складе.
	ProductTypeBottle ProductType = "bottle"
	// ProductTypeBakery — выпечка с конечным запасом на складе.
	ProductTypeBakery ProductType = "bakery"
)

// Valid проверяет, что тип относится к поддерживаемым значениям.
func (t ProductType) Valid() bool {
	switch t {
	case ProductTypeHandmade, ProductTypeBottle, ProductTypeBakery:
		return true
	default:
		return false
	}
}

// StockTracked сообщает, ведётся ли складской учёт для данного типа.
// Неизвестный тип — это ошибка данных, а не "по умолчанию без учёта".
func (t ProductType) StockTracked() (bool, error) {
	switch t {
	case ProductTypeHandmade:
		return false, nil
	case ProductTypeBottle, ProductTypeBakery:
		return true, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownProductType, string(t))
	}
}

// ProductSellingStatus описывает статус продажи продукта.
type ProductSellingStatus string

const (
	// SellingStatusSelling — продукт продаётся.
	SellingStatusSelling ProductSellingStatus = "selling"
	// SellingStatusHold — продажа приостановлена, продукт показывается в витрине.
	SellingStatusHold ProductSellingStatus = "hold"
	// SellingStatusStop — продажа прекращена.
	SellingStatusStop ProductSellingStatus = "stop_selling"
)

// SellingStatusesForDisplay возвращает статусы, в которых продукт попадает в витрину.
func SellingStatusesForDisplay() []ProductSellingStatus {
	return []ProductSellingStatus{SellingStatusSelling, SellingStatusHold}
}

// Product описывает продукт каталога. После создания запись не мутирует.
type Product struct {
	// ProductNumber — внешний номер продукта вида "001", выдаётся последовательно.
	ProductNumber string
	Type          ProductType
	SellingStatus ProductSellingStatus
	Name          string
	// PriceMinor — цена в минимальных денежных единицах.
	PriceMinor int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate проверяет базовые инварианты продукта и возвращает список замечаний.
func (p *Product) Validate() []error {
	var errs []error

	if p.ProductNumber == "" {
		errs = append(errs, ErrProductNumberRequired)
	}
	if !p.Type.Valid() {
		errs = append(errs, ErrUnknownProductType)
	}
	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.PriceMinor < 0 {
		errs = append(errs, ErrProductPriceNegative)
	}

	return errs
}
