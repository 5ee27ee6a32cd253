package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

const idempotencyModule = "sales"

// Sale outcomes reported to MetricsPort.
const (
	OutcomeSuccess      = "success"
	OutcomeNotFound     = "not_found"
	OutcomeInvalid      = "invalid_quantity"
	OutcomeInsufficient = "insufficient_stock"
	OutcomeDuplicate    = "duplicate"
	OutcomeConflict     = "conflict"
	OutcomeError        = "error"
)

// RepositoryPort abstracts the sale ledger for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	RecentSales(ctx context.Context, limit int) ([]Sale, error)
	GetSale(ctx context.Context, id int64) (Sale, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort claims and releases request keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// LowStockNotifier receives alerts after a sale drops stock to the threshold.
type LowStockNotifier interface {
	NotifyLowStock(ctx context.Context, alert LowStockAlert) error
}

// CacheInvalidator drops cached report data after a committed sale.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// MetricsPort counts sell outcomes.
type MetricsPort interface {
	ObserveSale(outcome string, units int)
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	LowStockThreshold int
}

// Deps bundles the optional collaborators of Service. Nil members are skipped.
type Deps struct {
	Audit       AuditPort
	Idempotency IdempotencyPort
	Notifier    LowStockNotifier
	Cache       CacheInvalidator
	Metrics     MetricsPort
	Logger      *slog.Logger
}

// Service coordinates sales.
type Service struct {
	repo      RepositoryPort
	deps      Deps
	threshold int
	logger    *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, cfg ServiceConfig, deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, deps: deps, threshold: cfg.LowStockThreshold, logger: logger}
}

// Sell decrements stock and records the sale in one transaction. Either the
// decrement, the header and the line all commit or none of them do.
func (s *Service) Sell(ctx context.Context, input SellInput) (*Receipt, error) {
	claimed := false
	if input.IdempotencyKey != "" && s.deps.Idempotency != nil {
		if err := s.deps.Idempotency.CheckAndInsert(ctx, input.IdempotencyKey, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				s.observe(OutcomeDuplicate, 0)
			}
			return nil, err
		}
		claimed = true
	}

	var receipt Receipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if input.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if input.Quantity > product.StockQuantity {
			return &InsufficientStockError{Product: product.Name, Available: product.StockQuantity}
		}

		total := product.Price.Mul(decimal.NewFromInt(int64(input.Quantity)))
		remaining, err := tx.DecrementStock(ctx, product.ID, input.Quantity)
		if err != nil {
			return err
		}

		saleID, soldAt, err := tx.InsertSale(ctx, input.ActorID, total)
		if err != nil {
			return fmt.Errorf("%w: insert sale: %v", ErrSaleRecording, err)
		}
		item := SaleItem{SaleID: saleID, ProductID: product.ID, ProductName: product.Name, Quantity: input.Quantity, Price: product.Price}
		if err := tx.InsertSaleItems(ctx, saleID, []SaleItem{item}); err != nil {
			return fmt.Errorf("%w: insert sale item: %v", ErrSaleRecording, err)
		}

		receipt = Receipt{
			SaleID:         saleID,
			ProductID:      product.ID,
			ProductName:    product.Name,
			Quantity:       input.Quantity,
			UnitPrice:      product.Price,
			Total:          total,
			RemainingStock: remaining,
			SoldAt:         soldAt,
		}
		return nil
	})
	if err != nil {
		if claimed {
			// The request may already be cancelled; the key must still go.
			if delErr := s.deps.Idempotency.Delete(context.WithoutCancel(ctx), input.IdempotencyKey, idempotencyModule); delErr != nil {
				s.logger.Warn("sales: release idempotency key", slog.Any("error", delErr))
			}
		}
		err = classify(err)
		s.observe(outcomeOf(err), 0)
		return nil, err
	}

	s.observe(OutcomeSuccess, receipt.Quantity)
	s.afterCommit(ctx, input.ActorID, receipt)
	return &receipt, nil
}

// RecentSales lists the latest sales with their lines.
func (s *Service) RecentSales(ctx context.Context, limit int) ([]Sale, error) {
	return s.repo.RecentSales(ctx, limit)
}

// GetSale returns one sale with its lines.
func (s *Service) GetSale(ctx context.Context, id int64) (Sale, error) {
	return s.repo.GetSale(ctx, id)
}

// afterCommit runs side effects that must not fail the sale.
func (s *Service) afterCommit(ctx context.Context, actorID int64, r Receipt) {
	if s.deps.Audit != nil {
		err := s.deps.Audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   shared.AuditSaleCreate,
			Entity:   "sale",
			EntityID: strconv.FormatInt(r.SaleID, 10),
			Meta: map[string]any{
				"product_id": r.ProductID,
				"quantity":   r.Quantity,
				"total":      r.Total.StringFixed(2),
			},
		})
		if err != nil {
			s.logger.Warn("sales: audit", slog.Int64("sale_id", r.SaleID), slog.Any("error", err))
		}
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Bump(ctx); err != nil {
			s.logger.Warn("sales: invalidate report cache", slog.Any("error", err))
		}
	}
	if s.deps.Notifier != nil && r.RemainingStock <= s.threshold {
		alert := LowStockAlert{ProductID: r.ProductID, Name: r.ProductName, Stock: r.RemainingStock, Threshold: s.threshold}
		if err := s.deps.Notifier.NotifyLowStock(ctx, alert); err != nil {
			s.logger.Warn("sales: enqueue low stock alert", slog.Int64("product_id", r.ProductID), slog.Any("error", err))
		}
	}
	s.logger.Info("sale recorded",
		slog.Int64("sale_id", r.SaleID),
		slog.Int64("product_id", r.ProductID),
		slog.Int("quantity", r.Quantity),
		slog.String("total", r.Total.StringFixed(2)),
	)
}

func (s *Service) observe(outcome string, units int) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveSale(outcome, units)
	}
}

// classify maps driver failures onto the sales error taxonomy.
func classify(err error) error {
	switch {
	case errors.Is(err, shared.ErrNotFound),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrSaleRecording),
		errors.Is(err, ErrConflict):
		return err
	case db.IsRetryable(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrInvalidQuantity):
		return OutcomeInvalid
	case errors.Is(err, ErrInsufficientStock):
		return OutcomeInsufficient
	case errors.Is(err, ErrConflict):
		return OutcomeConflict
	}
	return OutcomeError
}
