package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Repository is the product catalog store.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, input ProductInput) (Product, error)
	Update(ctx context.Context, id int64, input ProductInput) (Product, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const productColumns = `id, name, price::text, quantity, category, stock_quantity, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p     Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &price, &p.Quantity, &p.Category, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	amount, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	p.Price = amount
	return p, nil
}

// List returns every product ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("products: list: %w", err)
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("products: list scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get fetches a single product.
func (r *PGRepository) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, fmt.Errorf("products: get: %w", err)
	}
	return p, nil
}

// Create inserts a product.
func (r *PGRepository) Create(ctx context.Context, input ProductInput) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `INSERT INTO products (name, price, quantity, category, stock_quantity)
VALUES ($1, $2::numeric, $3, $4, $5) RETURNING `+productColumns,
		input.Name, input.Price.String(), input.Quantity, input.Category, input.StockQuantity))
	if err != nil {
		if db.IsCheckViolation(err) {
			return Product{}, shared.Invalid("Product values are out of range.")
		}
		return Product{}, fmt.Errorf("products: create: %w", err)
	}
	return p, nil
}

// Update overwrites every column of an existing product. The row is locked
// first so a concurrent sale cannot interleave with the overwrite.
func (r *PGRepository) Update(ctx context.Context, id int64, input ProductInput) (Product, error) {
	var updated Product
	err := db.WithTx(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		var locked int64
		if err := tx.QueryRow(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		p, err := scanProduct(tx.QueryRow(ctx, `UPDATE products
SET name = $2, price = $3::numeric, quantity = $4, category = $5, stock_quantity = $6, updated_at = NOW()
WHERE id = $1 RETURNING `+productColumns,
			id, input.Name, input.Price.String(), input.Quantity, input.Category, input.StockQuantity))
		if err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNotFound):
			return Product{}, shared.ErrNotFound
		case db.IsCheckViolation(err):
			return Product{}, shared.Invalid("Product values are out of range.")
		}
		return Product{}, fmt.Errorf("products: update: %w", err)
	}
	return updated, nil
}

var _ Repository = (*PGRepository)(nil)
