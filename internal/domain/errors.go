package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Ошибка пустого списка номеров продуктов в запросе на заказ.
	ErrProductNumbersRequired = errors.New("order must contain at least one product number")
	// Ошибка отсутствующего номера продукта в записи.
	ErrProductNumberRequired = errors.New("product_number is required")
	// Ошибка отсутствующего имени продукта.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка отрицательной цены продукта.
	ErrProductPriceNegative = errors.New("product price must be non-negative")
	// ErrProductNotFound возвращается, если номер продукта не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductNumberConflict сигнализирует о гонке при выдаче номера продукта.
	ErrProductNumberConflict = errors.New("product number conflict")
	// ErrUnknownProductType — тип продукта вне поддерживаемого перечня.
	// Для такого типа нельзя молча решить, ведётся ли складской учёт.
	ErrUnknownProductType = errors.New("unknown product type")

	// ErrStockNotFound возвращается, если по номеру продукта нет складской записи.
	ErrStockNotFound = errors.New("stock not found")
	// ErrStockInsufficient — остатка не хватает для запрошенного списания.
	ErrStockInsufficient = errors.New("insufficient stock")
	// ErrStockConflict — конкурирующая запись помешала списанию; попытку можно повторить.
	ErrStockConflict = errors.New("stock concurrent modification")
	// Ошибка некорректного количества при списании/возврате (<= 0).
	ErrStockQtyInvalid = errors.New("stock qty must be greater than zero")
	// Ошибка отрицательного остатка на складе.
	ErrStockQuantityNegative = errors.New("stock quantity must be non-negative")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyExists возвращается при попытке создать заказ с занятым ID.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении заказа.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrOrderLinesRequired = errors.New("order must contain at least one line")
	// Ошибка отрицательной суммы заказа.
	ErrOrderTotalNegative = errors.New("order total must be non-negative")
	// Ошибка несоответствия суммы заказа сумме позиций.
	ErrOrderTotalMismatch = errors.New("order total does not match lines sum")
	// Ошибка отсутствующего времени регистрации заказа.
	ErrOrderRegisteredAtRequired = errors.New("order registered_at is required")

	// Ошибка отсутствующего idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// Ошибка отсутствующего хэша запроса для idempotency-записи.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyNotFound возвращается, если запись по ключу отсутствует.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyKeyAlreadyExists возвращается при повторе ключа с тем же запросом.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — тот же ключ, но другое тело запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency request hash mismatch")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// InsufficientStockError уточняет, по каким номерам продуктов не хватило остатка.
type InsufficientStockError struct {
	ProductNumbers []string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for products [%s]", strings.Join(e.ProductNumbers, ", "))
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrStockInsufficient).
func (e *InsufficientStockError) Unwrap() error {
	return ErrStockInsufficient
}

// IsInsufficientStock проверяет, является ли ошибка нехваткой остатка.
func IsInsufficientStock(err error) bool {
	return errors.Is(err, ErrStockInsufficient)
}

// IsStockConflict проверяет, является ли ошибка конкурентным конфликтом списания.
func IsStockConflict(err error) bool {
	return errors.Is(err, ErrStockConflict)
}
