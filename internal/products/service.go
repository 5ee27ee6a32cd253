package products

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// AuditPort records catalog changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service exposes product admin operations.
type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ListProducts returns the full catalog.
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

// GetProduct returns a product or shared.ErrNotFound.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// AddProduct validates and stores a new product.
func (s *Service) AddProduct(ctx context.Context, actorID int64, form ProductForm) (Product, error) {
	input, err := form.Parse()
	if err != nil {
		return Product{}, err
	}
	product, err := s.repo.Create(ctx, input)
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, actorID, shared.AuditProductCreate, product)
	return product, nil
}

// UpdateProduct overwrites an existing product. The product is looked up
// before the form is validated, so missing ids yield shared.ErrNotFound and
// change nothing.
func (s *Service) UpdateProduct(ctx context.Context, actorID, id int64, form ProductForm) (Product, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return Product{}, err
	}
	input, err := form.Parse()
	if err != nil {
		return Product{}, err
	}
	product, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, actorID, shared.AuditProductUpdate, product)
	return product, nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, p Product) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "product",
		EntityID: strconv.FormatInt(p.ID, 10),
		Meta: map[string]any{
			"name":           p.Name,
			"price":          p.Price.StringFixed(2),
			"stock_quantity": p.StockQuantity,
		},
	})
	if err != nil {
		s.logger.Warn("products: audit", slog.String("action", action), slog.Any("error", err))
	}
}
