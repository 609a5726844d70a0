package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/SaugatGautam100/plexify/internal/app"
	"github.com/SaugatGautam100/plexify/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `id, name, description, image_url, price, stock_quantity, in_stock,
seller_id, seller_name, active, created_at, updated_at`

// ProductRepository is the catalog store. Stock changes are single
// conditional statements so concurrent placements never oversell.
type ProductRepository struct {
	db
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{db: db{pool: pool}}
}

func (r *ProductRepository) CreateProduct(ctx context.Context, p domain.Product) error {
	const stmt = `
INSERT INTO products (id, name, description, image_url, price, stock_quantity, in_stock,
	seller_id, seller_name, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.exec(ctx, stmt,
		p.ID, p.Name, p.Description, p.ImageURL, p.Price, p.StockQuantity, p.InStock,
		p.SellerID, p.SellerName, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return productWriteError("create product", err)
	}
	return nil
}

func (r *ProductRepository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	return r.getProduct(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, productID)
}

func (r *ProductRepository) GetProductForUpdate(ctx context.Context, productID string) (domain.Product, error) {
	return r.getProduct(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, productID)
}

func (r *ProductRepository) getProduct(ctx context.Context, query, productID string) (domain.Product, error) {
	p, err := scanProduct(r.queryRow(ctx, query, productID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Product{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) UpdateProduct(ctx context.Context, p domain.Product) error {
	const stmt = `
UPDATE products
SET name = $2, description = $3, image_url = $4, price = $5, stock_quantity = $6,
	in_stock = $7, active = $8, updated_at = $9
WHERE id = $1`

	tag, err := r.exec(ctx, stmt,
		p.ID, p.Name, p.Description, p.ImageURL, p.Price, p.StockQuantity,
		p.InStock, p.Active, p.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrProductNotFound
		}
		return productWriteError("update product", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *ProductRepository) ListProducts(ctx context.Context, filter app.ProductFilter) ([]domain.Product, int, error) {
	const countQuery = `
SELECT COUNT(*) FROM products
WHERE active AND ($1::text = '' OR seller_id = $1)`
	const listQuery = `
SELECT ` + productColumns + `
FROM products
WHERE active AND ($1::text = '' OR seller_id = $1)
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3`

	var total int
	if err := r.queryRow(ctx, countQuery, filter.SellerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.query(ctx, listQuery, filter.SellerID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, filter.Limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// DecrementStock takes qty units in one statement. When the guard fails it
// re-reads the row to report why.
func (r *ProductRepository) DecrementStock(ctx context.Context, productID string, qty int) (domain.Product, error) {
	const stmt = `
UPDATE products
SET stock_quantity = stock_quantity - $2,
	in_stock = (stock_quantity - $2) > 0,
	updated_at = NOW()
WHERE id = $1 AND active AND stock_quantity >= $2
RETURNING ` + productColumns

	p, err := scanProduct(r.queryRow(ctx, stmt, productID, qty))
	if err == nil {
		return p, nil
	}
	if isInvalidUUID(err) {
		return domain.Product{}, &domain.ProductNotFoundError{ProductID: productID}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("decrement stock: %w", err)
	}

	current, err := r.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return domain.Product{}, &domain.ProductNotFoundError{ProductID: productID}
		}
		return domain.Product{}, err
	}
	if !current.Active {
		return domain.Product{}, &domain.ProductNotFoundError{ProductID: productID}
	}
	return domain.Product{}, &domain.InsufficientStockError{
		ProductID:   current.ID,
		ProductName: current.Name,
		Requested:   qty,
		Available:   current.StockQuantity,
	}
}

func (r *ProductRepository) IncrementStock(ctx context.Context, productID string, qty int) (domain.Product, error) {
	const stmt = `
UPDATE products
SET stock_quantity = stock_quantity + $2,
	in_stock = (stock_quantity + $2) > 0,
	updated_at = NOW()
WHERE id = $1
RETURNING ` + productColumns

	p, err := scanProduct(r.queryRow(ctx, stmt, productID, qty))
	if err != nil {
		if isInvalidUUID(err) || errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("increment stock: %w", err)
	}
	return p, nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.ImageURL, &p.Price, &p.StockQuantity, &p.InStock,
		&p.SellerID, &p.SellerName, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func productWriteError(op string, err error) error {
	if isCheckViolation(err) {
		switch violatedConstraint(err) {
		case "products_price_check":
			return domain.ErrInvalidPrice
		case "products_stock_quantity_check", "products_in_stock_consistent":
			return domain.ErrInvalidStock
		case "products_name_check":
			return domain.ErrProductNameRequired
		}
	}
	if isInvalidUUID(err) {
		return domain.ErrInvalidID
	}
	return fmt.Errorf("%s: %w", op, err)
}
