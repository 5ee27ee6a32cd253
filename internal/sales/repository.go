package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// TxRepository exposes the ledger operations run inside a sell transaction.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID int64) (LockedProduct, error)
	DecrementStock(ctx context.Context, productID int64, qty int) (int, error)
	InsertSale(ctx context.Context, userID int64, total decimal.Decimal) (int64, time.Time, error)
	InsertSaleItems(ctx context.Context, saleID int64, items []SaleItem) error
}

// Repository provides access to the sale ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes fn inside a read-committed transaction. Row locks taken by
// fn make concurrent sellers of the same product queue behind each other.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

type txRepo struct {
	tx pgx.Tx
}

func (r *txRepo) GetProductForUpdate(ctx context.Context, productID int64) (LockedProduct, error) {
	var (
		p     LockedProduct
		price string
	)
	err := r.tx.QueryRow(ctx, `SELECT id, name, price::text, stock_quantity FROM products WHERE id = $1 FOR UPDATE`, productID).
		Scan(&p.ID, &p.Name, &price, &p.StockQuantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LockedProduct{}, shared.ErrNotFound
		}
		return LockedProduct{}, err
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return LockedProduct{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	return p, nil
}

func (r *txRepo) DecrementStock(ctx context.Context, productID int64, qty int) (int, error) {
	var stock int
	err := r.tx.QueryRow(ctx, `UPDATE products SET stock_quantity = stock_quantity - $2, updated_at = NOW()
WHERE id = $1 AND stock_quantity >= $2 RETURNING stock_quantity`, productID, qty).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrConflict
		}
		return 0, err
	}
	return stock, nil
}

func (r *txRepo) InsertSale(ctx context.Context, userID int64, total decimal.Decimal) (int64, time.Time, error) {
	var (
		id int64
		at time.Time
	)
	err := r.tx.QueryRow(ctx, `INSERT INTO sales (user_id, total, date_time) VALUES ($1, $2::numeric, NOW()) RETURNING id, date_time`,
		userID, total.String()).Scan(&id, &at)
	return id, at, err
}

func (r *txRepo) InsertSaleItems(ctx context.Context, saleID int64, items []SaleItem) error {
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`INSERT INTO sale_items (sale_id, product_id, quantity, price) VALUES ($1, $2, $3, $4::numeric)`,
			saleID, item.ProductID, item.Quantity, item.Price.String())
	}
	return r.tx.SendBatch(ctx, batch).Close()
}

// RecentSales returns the latest sales with their lines, newest first.
func (r *Repository) RecentSales(ctx context.Context, limit int) ([]Sale, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `SELECT s.id, s.user_id, COALESCE(u.username, ''), s.total::text, s.date_time
FROM sales s LEFT JOIN users u ON u.id = s.user_id
ORDER BY s.date_time DESC, s.id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("sales: recent: %w", err)
	}
	var (
		out   []Sale
		ids   []int64
		index = make(map[int64]int)
	)
	for rows.Next() {
		var (
			s     Sale
			total string
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.Username, &total, &s.DateTime); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sales: recent scan: %w", err)
		}
		if s.Total, err = decimal.NewFromString(total); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sales: parse total: %w", err)
		}
		index[s.ID] = len(out)
		ids = append(ids, s.ID)
		out = append(out, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if i, ok := index[item.SaleID]; ok {
			out[i].Items = append(out[i].Items, item)
		}
	}
	return out, nil
}

// GetSale loads one sale with its lines.
func (r *Repository) GetSale(ctx context.Context, id int64) (Sale, error) {
	var (
		s     Sale
		total string
	)
	err := r.pool.QueryRow(ctx, `SELECT s.id, s.user_id, COALESCE(u.username, ''), s.total::text, s.date_time
FROM sales s LEFT JOIN users u ON u.id = s.user_id WHERE s.id = $1`, id).
		Scan(&s.ID, &s.UserID, &s.Username, &total, &s.DateTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, shared.ErrNotFound
		}
		return Sale{}, fmt.Errorf("sales: get: %w", err)
	}
	if s.Total, err = decimal.NewFromString(total); err != nil {
		return Sale{}, fmt.Errorf("sales: parse total: %w", err)
	}
	if s.Items, err = r.itemsFor(ctx, []int64{id}); err != nil {
		return Sale{}, err
	}
	return s, nil
}

func (r *Repository) itemsFor(ctx context.Context, saleIDs []int64) ([]SaleItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT si.id, si.sale_id, si.product_id, COALESCE(p.name, ''), si.quantity, si.price::text
FROM sale_items si LEFT JOIN products p ON p.id = si.product_id
WHERE si.sale_id = ANY($1) ORDER BY si.sale_id, si.id`, saleIDs)
	if err != nil {
		return nil, fmt.Errorf("sales: items: %w", err)
	}
	defer rows.Close()
	var items []SaleItem
	for rows.Next() {
		var (
			item  SaleItem
			price string
		)
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName, &item.Quantity, &price); err != nil {
			return nil, fmt.Errorf("sales: items scan: %w", err)
		}
		if item.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("sales: parse price: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
