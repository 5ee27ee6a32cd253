package reports_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/reports"
	"github.com/odyssey-erp/odyssey-pos/internal/view"
	_ "github.com/odyssey-erp/odyssey-pos/testing"
)

type stubRepo struct {
	summaryCalls atomic.Int32
	mu           sync.Mutex
	lastFrom     *time.Time
}

func (s *stubRepo) Summary(ctx context.Context, from, to *time.Time) (reports.Window, error) {
	s.summaryCalls.Add(1)
	s.mu.Lock()
	s.lastFrom = from
	s.mu.Unlock()
	return reports.Window{Sales: 2, Units: 4, Revenue: decimal.RequireFromString("39.96")}, nil
}

func (s *stubRepo) TopProducts(ctx context.Context, limit int) ([]reports.TopProduct, error) {
	return []reports.TopProduct{{ProductID: 1, Name: "Widget", Units: 4, Revenue: decimal.RequireFromString("39.96")}}, nil
}

func (s *stubRepo) LowStock(ctx context.Context, threshold int) ([]reports.LowStockItem, error) {
	return []reports.LowStockItem{{ID: 1, Name: "Widget", Category: "Tools", StockQuantity: threshold}}, nil
}

func (s *stubRepo) RecentLines(ctx context.Context, limit int) ([]reports.SaleLine, error) {
	return []reports.SaleLine{{
		SaleID: 7, DateTime: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), Username: "clerk",
		ProductName: "Widget", Quantity: 3, UnitPrice: decimal.RequireFromString("9.99"), Total: decimal.RequireFromString("29.97"),
	}}, nil
}

func newCache(t *testing.T) (*reports.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return reports.NewCache(client, time.Minute), mr
}

func TestDashboardIsCachedUntilBump(t *testing.T) {
	repo := &stubRepo{}
	cache, _ := newCache(t)
	svc := reports.NewService(repo, cache, reports.ServiceConfig{LowStockThreshold: 5}, nil)
	ctx := context.Background()

	first, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	require.Len(t, first.Windows, 3)
	assert.Equal(t, "Today", first.Windows[0].Label)
	assert.Equal(t, "All time", first.Windows[2].Label)
	assert.Equal(t, "39.96", first.Windows[2].Revenue.StringFixed(2))
	assert.Equal(t, int32(3), repo.summaryCalls.Load())

	second, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(3), repo.summaryCalls.Load())
	assert.Equal(t, first.RecentSales[0].SaleID, second.RecentSales[0].SaleID)

	require.NoError(t, cache.Bump(ctx))
	_, err = svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(6), repo.summaryCalls.Load())
}

func TestCacheVersionStartsAtOne(t *testing.T) {
	cache, mr := newCache(t)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "reports", "dashboard")
	require.NoError(t, err)
	assert.Equal(t, "reports:dashboard:1", key)

	require.NoError(t, cache.Bump(ctx))
	got, err := mr.Get("reports:version")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}

func TestDashboardWithoutCache(t *testing.T) {
	svc := reports.NewService(&stubRepo{}, nil, reports.ServiceConfig{LowStockThreshold: 3}, nil)

	data, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, data.LowStockThreshold)
	require.Len(t, data.LowStock, 1)
}

func TestDaySummaryUsesUTCDay(t *testing.T) {
	repo := &stubRepo{}
	svc := reports.NewService(repo, nil, reports.ServiceConfig{}, nil)

	w, err := svc.DaySummary(context.Background(), time.Date(2024, 3, 1, 17, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", w.Label)
	require.NotNil(t, repo.lastFrom)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *repo.lastFrom)
}

type fakePDF struct {
	html string
	err  error
}

func (f *fakePDF) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	f.html = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4"), nil
}

func newHandler(t *testing.T, pdf reports.PDFRenderer) *reports.Handler {
	t.Helper()
	templates, err := view.NewEngine()
	require.NoError(t, err)
	svc := reports.NewService(&stubRepo{}, nil, reports.ServiceConfig{LowStockThreshold: 5}, nil)
	return reports.NewHandler(nil, svc, templates, nil, pdf)
}

func TestReportsPage(t *testing.T) {
	h := newHandler(t, nil)
	res := httptest.NewRecorder()
	h.Index(res, httptest.NewRequest(http.MethodGet, "/reports", nil))

	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "Top Products")
	assert.Contains(t, body, "29.97")
}

func TestSalesCSVExport(t *testing.T) {
	h := newHandler(t, nil)
	res := httptest.NewRecorder()
	h.CSV(res, httptest.NewRequest(http.MethodGet, "/reports/sales.csv", nil))

	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "text/csv; charset=utf-8", res.Header().Get("Content-Type"))
	rows := strings.Split(strings.TrimSpace(res.Body.String()), "\n")
	require.Len(t, rows, 2)
	assert.Equal(t, "sale_id,date_time,username,product,quantity,unit_price,total", rows[0])
	assert.Equal(t, "7,2024-03-01T10:00:00Z,clerk,Widget,3,9.99,29.97", rows[1])
}

func TestSalesPDFExport(t *testing.T) {
	pdf := &fakePDF{}
	h := newHandler(t, pdf)
	res := httptest.NewRecorder()
	h.PDF(res, httptest.NewRequest(http.MethodGet, "/reports/sales.pdf", nil))

	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "application/pdf", res.Header().Get("Content-Type"))
	assert.Contains(t, pdf.html, "Sales Report")

	failing := newHandler(t, &fakePDF{err: assert.AnError})
	res = httptest.NewRecorder()
	failing.PDF(res, httptest.NewRequest(http.MethodGet, "/reports/sales.pdf", nil))
	assert.Equal(t, http.StatusBadGateway, res.Code)
}
