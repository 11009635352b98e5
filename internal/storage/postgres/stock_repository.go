package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
)

type stockRepository struct {
	db *sql.DB
}

// NewStockRepository создаёт PostgreSQL-реализацию StockRepository.
// Атомарность check-and-deduct обеспечивается условным UPDATE: база сама
// сериализует конкурентные списания одного номера на уровне строки.
func NewStockRepository(store *Store) domain.StockRepository {
	return &stockRepository{db: store.DB()}
}

func (r *stockRepository) FindByProductNumbers(productNumbers []string) (map[string]domain.Stock, error) {
	if len(productNumbers) == 0 {
		return map[string]domain.Stock{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	placeholders := make([]string, 0, len(productNumbers))
	args := make([]any, 0, len(productNumbers))
	for i, number := range productNumbers {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, number)
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT product_number, quantity, version, updated_at
		FROM stocks
		WHERE product_number IN (%s)
	`, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return nil, fmt.Errorf("select stocks: %w", err)
	}
	defer rows.Close()

	result := make(map[string]domain.Stock, len(productNumbers))
	for rows.Next() {
		var stock domain.Stock
		if err := rows.Scan(&stock.ProductNumber, &stock.Quantity, &stock.Version, &stock.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock row: %w", err)
		}
		result[stock.ProductNumber] = stock
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock rows: %w", err)
	}

	return result, nil
}

func (r *stockRepository) Upsert(stock domain.Stock) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stocks (product_number, quantity, version, updated_at)
		VALUES ($1, $2, 0, now())
		ON CONFLICT (product_number) DO UPDATE
		SET quantity = EXCLUDED.quantity,
		    version = stocks.version + 1,
		    updated_at = now()
	`, stock.ProductNumber, stock.Quantity)
	if err != nil {
		return fmt.Errorf("upsert stock: %w", err)
	}

	return nil
}

// CheckAndDeduct выполняет списание одним условным UPDATE: строка меняется
// только если остатка хватает, поэтому между проверкой и записью никто не
// может вклиниться. Возвращает новый остаток.
func (r *stockRepository) CheckAndDeduct(productNumber string, qty int32) (int32, error) {
	if qty <= 0 {
		return 0, domain.ErrStockQtyInvalid
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var remaining int32
	err := r.db.QueryRowContext(ctx, `
		UPDATE stocks
		SET quantity = quantity - $1,
		    version = version + 1,
		    updated_at = now()
		WHERE product_number = $2
		  AND quantity >= $1
		RETURNING quantity
	`, qty, productNumber).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if isSerializationFailure(err) {
		return 0, domain.ErrStockConflict
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("deduct stock: %w", err)
	}

	// UPDATE никого не зацепил: либо записи нет, либо остатка не хватает.
	exists, err := r.stockExists(ctx, productNumber)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("%w: %s", domain.ErrStockNotFound, productNumber)
	}
	return 0, &domain.InsufficientStockError{ProductNumbers: []string{productNumber}}
}

func (r *stockRepository) Restore(productNumber string, qty int32) error {
	if qty <= 0 {
		return domain.ErrStockQtyInvalid
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE stocks
		SET quantity = quantity + $1,
		    version = version + 1,
		    updated_at = now()
		WHERE product_number = $2
	`, qty, productNumber)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrStockNotFound, productNumber)
	}

	return nil
}

func (r *stockRepository) stockExists(ctx context.Context, productNumber string) (bool, error) {
	var number string
	err := r.db.QueryRowContext(ctx, `SELECT product_number FROM stocks WHERE product_number = $1`, productNumber).Scan(&number)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check stock exists: %w", err)
}

// isSerializationFailure распознаёт конфликт сериализации (SQLSTATE 40001),
// который имеет смысл повторить на уровне сервиса.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001"
	}
	return false
}

var _ domain.StockRepository = (*stockRepository)(nil)
