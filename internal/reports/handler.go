package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/internal/view"
)

const (
	requestTimeout  = 5 * time.Second
	exportLineLimit = 1000
)

// PDFRenderer converts HTML into PDF bytes.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Handler serves report pages and exports.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	pdf       PDFRenderer
}

// NewHandler builds a Handler. pdf may be nil, which disables PDF export.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, pdf PDFRenderer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, pdf: pdf}
}

// MountRoutes registers report routes. Callers apply the admin gate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports", h.Index)
	r.Get("/reports/sales.csv", h.CSV)
	r.Get("/reports/sales.pdf", h.PDF)
}

// Index renders the reports page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	data, err := h.service.Dashboard(ctx)
	if err != nil {
		h.serverError(w, "load reports", err)
		return
	}
	page := view.NewPage(r, h.csrf, "Reports", data)
	if err := h.templates.Render(w, "pages/reports.html", page); err != nil {
		h.logger.Error("render reports", slog.Any("error", err))
	}
}

// CSV streams recent sale lines as CSV.
func (h *Handler) CSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	lines, err := h.service.SaleLines(ctx, exportLineLimit)
	if err != nil {
		h.serverError(w, "load sale lines", err)
		return
	}
	var buf bytes.Buffer
	if err := WriteSalesCSV(&buf, lines); err != nil {
		h.serverError(w, "write csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"sales-%s.csv\"", time.Now().UTC().Format("20060102")))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("stream csv", slog.Any("error", err))
	}
}

// PDF renders the report through the PDF service.
func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		h.badGateway(w, "pdf exporter", errors.New("pdf exporter not configured"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	data, err := h.service.Dashboard(ctx)
	if err != nil {
		h.serverError(w, "load reports", err)
		return
	}
	html, err := h.templates.RenderString("pages/report_print.html", view.TemplateData{Title: "Sales Report", Data: data})
	if err != nil {
		h.serverError(w, "render report html", err)
		return
	}
	pdfBytes, err := h.pdf.RenderHTML(ctx, html)
	if err != nil {
		h.badGateway(w, "render pdf", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"sales-%s.pdf\"", data.GeneratedAt.Format("20060102")))
	if _, err := w.Write(pdfBytes); err != nil {
		h.logger.Warn("stream pdf", slog.Any("error", err))
	}
}

func (h *Handler) serverError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, slog.Any("error", err))
	http.Error(w, "Unable to build report", http.StatusInternalServerError)
}

func (h *Handler) badGateway(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, slog.Any("error", err))
	http.Error(w, "PDF export is unavailable right now", http.StatusBadGateway)
}

// WriteSalesCSV writes one row per sale line with a header row.
func WriteSalesCSV(buf *bytes.Buffer, lines []SaleLine) error {
	writer := csv.NewWriter(buf)
	if err := writer.Write([]string{"sale_id", "date_time", "username", "product", "quantity", "unit_price", "total"}); err != nil {
		return err
	}
	for _, line := range lines {
		record := []string{
			strconv.FormatInt(line.SaleID, 10),
			line.DateTime.UTC().Format(time.RFC3339),
			line.Username,
			line.ProductName,
			strconv.Itoa(line.Quantity),
			line.UnitPrice.StringFixed(2),
			line.Total.StringFixed(2),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
