package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository runs the read-only report queries.
type Repository interface {
	Summary(ctx context.Context, from, to *time.Time) (Window, error)
	TopProducts(ctx context.Context, limit int) ([]TopProduct, error)
	LowStock(ctx context.Context, threshold int) ([]LowStockItem, error)
	RecentLines(ctx context.Context, limit int) ([]SaleLine, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Summary counts sales, units and revenue with date_time in [from, to).
// Nil bounds are open.
func (r *PGRepository) Summary(ctx context.Context, from, to *time.Time) (Window, error) {
	var (
		w       Window
		revenue string
	)
	err := r.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT s.id), COALESCE(SUM(si.quantity), 0), COALESCE(SUM(si.quantity * si.price), 0)::text
FROM sales s JOIN sale_items si ON si.sale_id = s.id
WHERE ($1::timestamptz IS NULL OR s.date_time >= $1) AND ($2::timestamptz IS NULL OR s.date_time < $2)`, from, to).
		Scan(&w.Sales, &w.Units, &revenue)
	if err != nil {
		return Window{}, fmt.Errorf("reports: summary: %w", err)
	}
	if w.Revenue, err = decimal.NewFromString(revenue); err != nil {
		return Window{}, fmt.Errorf("reports: parse revenue: %w", err)
	}
	return w, nil
}

// TopProducts ranks products by units sold.
func (r *PGRepository) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.name, SUM(si.quantity), SUM(si.quantity * si.price)::text
FROM sale_items si JOIN products p ON p.id = si.product_id
GROUP BY p.id, p.name ORDER BY SUM(si.quantity) DESC, p.id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("reports: top products: %w", err)
	}
	defer rows.Close()
	var out []TopProduct
	for rows.Next() {
		var (
			tp      TopProduct
			revenue string
		)
		if err := rows.Scan(&tp.ProductID, &tp.Name, &tp.Units, &revenue); err != nil {
			return nil, fmt.Errorf("reports: top products scan: %w", err)
		}
		if tp.Revenue, err = decimal.NewFromString(revenue); err != nil {
			return nil, fmt.Errorf("reports: parse revenue: %w", err)
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

// LowStock lists products with stock at or below threshold.
func (r *PGRepository) LowStock(ctx context.Context, threshold int) ([]LowStockItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, category, stock_quantity FROM products
WHERE stock_quantity <= $1 ORDER BY stock_quantity, id`, threshold)
	if err != nil {
		return nil, fmt.Errorf("reports: low stock: %w", err)
	}
	defer rows.Close()
	var out []LowStockItem
	for rows.Next() {
		var item LowStockItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &item.StockQuantity); err != nil {
			return nil, fmt.Errorf("reports: low stock scan: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// RecentLines returns the latest sale lines, newest first.
func (r *PGRepository) RecentLines(ctx context.Context, limit int) ([]SaleLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.id, s.date_time, COALESCE(u.username, ''), COALESCE(p.name, ''), si.quantity, si.price::text, (si.quantity * si.price)::text
FROM sale_items si
JOIN sales s ON s.id = si.sale_id
LEFT JOIN users u ON u.id = s.user_id
LEFT JOIN products p ON p.id = si.product_id
ORDER BY s.date_time DESC, si.id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("reports: recent lines: %w", err)
	}
	defer rows.Close()
	var out []SaleLine
	for rows.Next() {
		var (
			line         SaleLine
			price, total string
		)
		if err := rows.Scan(&line.SaleID, &line.DateTime, &line.Username, &line.ProductName, &line.Quantity, &price, &total); err != nil {
			return nil, fmt.Errorf("reports: recent lines scan: %w", err)
		}
		if line.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("reports: parse price: %w", err)
		}
		if line.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("reports: parse total: %w", err)
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
