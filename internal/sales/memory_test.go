package sales_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/sales"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// memoryLedger serialises transactions behind one mutex, which stands in for
// the product row lock, and restores a snapshot when fn fails.
type memoryLedger struct {
	mu        sync.Mutex
	products  map[int64]sales.LockedProduct
	sales     []sales.Sale
	nextSale  int64
	failItems error
}

func newMemoryLedger(products ...sales.LockedProduct) *memoryLedger {
	m := &memoryLedger{products: make(map[int64]sales.LockedProduct)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *memoryLedger) WithTx(ctx context.Context, fn func(context.Context, sales.TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[int64]sales.LockedProduct, len(m.products))
	for id, p := range m.products {
		snapshot[id] = p
	}
	salesLen, nextSale := len(m.sales), m.nextSale

	if err := fn(ctx, &memoryTx{m: m}); err != nil {
		m.products = snapshot
		m.sales = m.sales[:salesLen]
		m.nextSale = nextSale
		return err
	}
	return nil
}

func (m *memoryLedger) RecentSales(ctx context.Context, limit int) ([]sales.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sales.Sale, 0, len(m.sales))
	for i := len(m.sales) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.sales[i])
	}
	return out, nil
}

func (m *memoryLedger) GetSale(ctx context.Context, id int64) (sales.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sales {
		if s.ID == id {
			return s, nil
		}
	}
	return sales.Sale{}, shared.ErrNotFound
}

func (m *memoryLedger) stock(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].StockQuantity
}

func (m *memoryLedger) saleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sales)
}

type memoryTx struct {
	m *memoryLedger
}

func (t *memoryTx) GetProductForUpdate(ctx context.Context, id int64) (sales.LockedProduct, error) {
	p, ok := t.m.products[id]
	if !ok {
		return sales.LockedProduct{}, shared.ErrNotFound
	}
	return p, nil
}

func (t *memoryTx) DecrementStock(ctx context.Context, id int64, qty int) (int, error) {
	p := t.m.products[id]
	if p.StockQuantity < qty {
		return 0, sales.ErrConflict
	}
	p.StockQuantity -= qty
	t.m.products[id] = p
	return p.StockQuantity, nil
}

func (t *memoryTx) InsertSale(ctx context.Context, userID int64, total decimal.Decimal) (int64, time.Time, error) {
	t.m.nextSale++
	now := time.Now()
	t.m.sales = append(t.m.sales, sales.Sale{ID: t.m.nextSale, UserID: userID, Total: total, DateTime: now})
	return t.m.nextSale, now, nil
}

func (t *memoryTx) InsertSaleItems(ctx context.Context, saleID int64, items []sales.SaleItem) error {
	if t.m.failItems != nil {
		return t.m.failItems
	}
	for i := range t.m.sales {
		if t.m.sales[i].ID == saleID {
			t.m.sales[i].Items = append(t.m.sales[i].Items, items...)
			return nil
		}
	}
	return errors.New("sale header missing")
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (s *memoryIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys == nil {
		s.keys = make(map[string]bool)
	}
	if s.keys[module+":"+key] {
		return shared.ErrIdempotencyConflict
	}
	s.keys[module+":"+key] = true
	return nil
}

func (s *memoryIdempotency) Delete(ctx context.Context, key, module string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, module+":"+key)
	return nil
}

func (s *memoryIdempotency) held(key, module string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[module+":"+key]
}

// strictIdempotency refuses to touch the store once ctx is done, as a
// network-backed store would.
type strictIdempotency struct {
	memoryIdempotency
}

func (s *strictIdempotency) Delete(ctx context.Context, key, module string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.memoryIdempotency.Delete(ctx, key, module)
}

// cancellingLedger cancels the request context while the transaction runs
// and then fails it.
type cancellingLedger struct {
	*memoryLedger
	cancel context.CancelFunc
}

func (c *cancellingLedger) WithTx(ctx context.Context, fn func(context.Context, sales.TxRepository) error) error {
	c.cancel()
	return ctx.Err()
}

type recordingNotifier struct {
	alerts []sales.LowStockAlert
}

func (n *recordingNotifier) NotifyLowStock(ctx context.Context, alert sales.LowStockAlert) error {
	n.alerts = append(n.alerts, alert)
	return nil
}

type countingCache struct {
	bumps int
}

func (c *countingCache) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}

type outcomeMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (o *outcomeMetrics) ObserveSale(outcome string, units int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = make(map[string]int)
	}
	o.outcomes[outcome]++
}
