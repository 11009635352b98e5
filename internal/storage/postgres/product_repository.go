package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Create(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (
			product_number, product_type, selling_status, name, price_minor, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		product.ProductNumber, string(product.Type), string(product.SellingStatus),
		product.Name, product.PriceMinor, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrProductNumberConflict
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

func (r *productRepository) FindByProductNumbers(productNumbers []string) (map[string]domain.Product, error) {
	if len(productNumbers) == 0 {
		return map[string]domain.Product{}, nil
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
		SELECT product_number, product_type, selling_status, name, price_minor, created_at, updated_at
		FROM products
		WHERE product_number IN (%s)
	`, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	result := make(map[string]domain.Product, len(productNumbers))
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[product.ProductNumber] = product
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return result, nil
}

func (r *productRepository) FindBySellingStatusIn(statuses []domain.ProductSellingStatus) ([]domain.Product, error) {
	if len(statuses) == 0 {
		return []domain.Product{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	placeholders := make([]string, 0, len(statuses))
	args := make([]any, 0, len(statuses))
	for i, status := range statuses {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, string(status))
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT product_number, product_type, selling_status, name, price_minor, created_at, updated_at
		FROM products
		WHERE selling_status IN (%s)
		ORDER BY product_number ASC
	`, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return nil, fmt.Errorf("select products by status: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return result, nil
}

func (r *productRepository) LatestProductNumber() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var number string
	err := r.db.QueryRowContext(ctx, `
		SELECT product_number
		FROM products
		ORDER BY product_number DESC
		LIMIT 1
	`).Scan(&number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("select latest product number: %w", err)
	}

	return number, nil
}

func scanProduct(rows *sql.Rows) (domain.Product, error) {
	var product domain.Product
	var productType, sellingStatus string
	if err := rows.Scan(
		&product.ProductNumber, &productType, &sellingStatus,
		&product.Name, &product.PriceMinor, &product.CreatedAt, &product.UpdatedAt,
	); err != nil {
		return domain.Product{}, fmt.Errorf("scan product row: %w", err)
	}
	product.Type = domain.ProductType(productType)
	product.SellingStatus = domain.ProductSellingStatus(sellingStatus)
	return product, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
