package products_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/products"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

type memoryRepo struct {
	mu      sync.Mutex
	nextID  int64
	items   map[int64]products.Product
	updates int
}

func newMemoryRepo(seed ...products.Product) *memoryRepo {
	m := &memoryRepo{items: make(map[int64]products.Product)}
	for _, p := range seed {
		if p.ID > m.nextID {
			m.nextID = p.ID
		}
		m.items[p.ID] = p
	}
	return m
}

func (m *memoryRepo) List(ctx context.Context) ([]products.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]products.Product, 0, len(m.items))
	for _, p := range m.items {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (products.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return products.Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memoryRepo) Create(ctx context.Context, in products.ProductInput) (products.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	now := time.Now()
	p := products.Product{ID: m.nextID, Name: in.Name, Price: in.Price, Quantity: in.Quantity, Category: in.Category, StockQuantity: in.StockQuantity, CreatedAt: now, UpdatedAt: now}
	m.items[p.ID] = p
	return p, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, in products.ProductInput) (products.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return products.Product{}, shared.ErrNotFound
	}
	p.Name, p.Price, p.Quantity, p.Category, p.StockQuantity = in.Name, in.Price, in.Quantity, in.Category, in.StockQuantity
	p.UpdatedAt = time.Now()
	m.items[id] = p
	m.updates++
	return p, nil
}
