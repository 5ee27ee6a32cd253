package reports

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	topProductsLimit = 5
	recentLinesLimit = 20
)

// ServiceConfig groups report settings.
type ServiceConfig struct {
	LowStockThreshold int
}

// Service assembles report data.
type Service struct {
	repo      Repository
	cache     *Cache
	threshold int
	logger    *slog.Logger
	group     singleflight.Group
	now       func() time.Time
}

// NewService builds a Service. cache may be nil.
func NewService(repo Repository, cache *Cache, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, threshold: cfg.LowStockThreshold, logger: logger, now: time.Now}
}

// Dashboard returns the cached dashboard, building it on a miss. Concurrent
// misses share one build.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	key, err := s.cache.BuildKey(ctx, "reports", "dashboard")
	if err != nil {
		s.logger.Warn("reports: cache version", slog.Any("error", err))
		return s.build(ctx)
	}
	res, err, _ := s.group.Do(key, func() (any, error) {
		var out Dashboard
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			return s.build(ctx)
		})
		return out, err
	})
	if err != nil {
		return Dashboard{}, err
	}
	return res.(Dashboard), nil
}

// DaySummary totals sales for the UTC day containing day.
func (s *Service) DaySummary(ctx context.Context, day time.Time) (Window, error) {
	from := day.UTC().Truncate(24 * time.Hour)
	to := from.Add(24 * time.Hour)
	w, err := s.repo.Summary(ctx, &from, &to)
	if err != nil {
		return Window{}, err
	}
	w.Label = from.Format("2006-01-02")
	return w, nil
}

// SaleLines returns up to limit recent sale lines for exports.
func (s *Service) SaleLines(ctx context.Context, limit int) ([]SaleLine, error) {
	return s.repo.RecentLines(ctx, limit)
}

func (s *Service) build(ctx context.Context) (Dashboard, error) {
	now := s.now().UTC()
	today := now.Truncate(24 * time.Hour)
	week := now.Add(-7 * 24 * time.Hour)

	out := Dashboard{GeneratedAt: now, LowStockThreshold: s.threshold, Windows: make([]Window, 3)}
	g, ctx := errgroup.WithContext(ctx)

	windows := []struct {
		label string
		from  *time.Time
	}{
		{"Today", &today},
		{"Last 7 days", &week},
		{"All time", nil},
	}
	for i, win := range windows {
		g.Go(func() error {
			w, err := s.repo.Summary(ctx, win.from, nil)
			if err != nil {
				return err
			}
			w.Label = win.label
			out.Windows[i] = w
			return nil
		})
	}
	g.Go(func() error {
		top, err := s.repo.TopProducts(ctx, topProductsLimit)
		out.TopProducts = top
		return err
	})
	g.Go(func() error {
		low, err := s.repo.LowStock(ctx, s.threshold)
		out.LowStock = low
		return err
	})
	g.Go(func() error {
		lines, err := s.repo.RecentLines(ctx, recentLinesLimit)
		out.RecentSales = lines
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return out, nil
}
