package sales

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/internal/view"
)

const (
	dashboardPath  = "/dashboard"
	ledgerPageSize = 50
)

// Handler exposes the sell endpoint and the sale ledger pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers the sell route and receipts on r, and the ledger
// listing behind admin.
func (h *Handler) MountRoutes(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Post("/sell", h.Sell)
	r.Get("/sales/{id}", h.Receipt)
	r.With(admin).Get("/sales", h.Ledger)
}

// Ledger lists the most recent sales with their lines.
func (h *Handler) Ledger(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.RecentSales(r.Context(), ledgerPageSize)
	if err != nil {
		h.logger.Error("recent sales", slog.Any("error", err))
		http.Error(w, "Unable to load sales", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/sales.html", "Sales", list)
}

// Receipt shows one sale. Cashiers may only open their own sales.
func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.saleNotFound(w, r)
		return
	}
	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("get sale", slog.Int64("sale_id", id), slog.Any("error", err))
		}
		h.saleNotFound(w, r)
		return
	}
	if !identity.IsAdmin() && sale.UserID != identity.UserID {
		h.saleNotFound(w, r)
		return
	}
	h.render(w, r, "pages/sale.html", "Sale #"+strconv.FormatInt(sale.ID, 10), sale)
}

func (h *Handler) saleNotFound(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.Flash(shared.FlashDanger, "Sale not found.")
	}
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	page := view.NewPage(r, h.csrf, title, data)
	if err := h.templates.Render(w, name, page); err != nil {
		h.logger.Error("render "+name, slog.Any("error", err))
	}
}

// Sell records a single-product sale and always redirects to the dashboard
// with a flash describing the outcome.
func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	flash := func(kind, msg string) {
		if sess != nil {
			sess.Flash(kind, msg)
		}
	}
	defer http.Redirect(w, r, dashboardPath, http.StatusSeeOther)

	productID, err := strconv.ParseInt(strings.TrimSpace(r.PostFormValue("product_id")), 10, 64)
	if err != nil || productID <= 0 {
		flash(shared.FlashDanger, "Product not found.")
		return
	}
	// An unparsable quantity is treated like zero: the product lookup still
	// runs first so an unknown product wins over a bad quantity.
	quantity, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("quantity")))
	if err != nil {
		quantity = 0
	}
	identity, _ := shared.IdentityFromContext(r.Context())

	receipt, err := h.service.Sell(r.Context(), SellInput{
		ProductID:      productID,
		Quantity:       quantity,
		ActorID:        identity.UserID,
		IdempotencyKey: strings.TrimSpace(r.PostFormValue("sale_token")),
	})
	var stockErr *InsufficientStockError
	switch {
	case err == nil:
		flash(shared.FlashSuccess, fmt.Sprintf("Sold %d units of %s.", receipt.Quantity, receipt.ProductName))
	case errors.Is(err, shared.ErrNotFound):
		flash(shared.FlashDanger, "Product not found.")
	case errors.Is(err, ErrInvalidQuantity):
		flash(shared.FlashDanger, "Quantity to sell must be a positive number.")
	case errors.As(err, &stockErr):
		flash(shared.FlashDanger, stockErr.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		flash(shared.FlashWarning, "This sale was already submitted.")
	case errors.Is(err, ErrConflict):
		h.logger.Warn("sell conflict", slog.Int64("product_id", productID), slog.Any("error", err))
		flash(shared.FlashDanger, "The product changed while selling. Please try again.")
	default:
		h.logger.Error("sell", slog.Int64("product_id", productID), slog.Int64("user_id", identity.UserID), slog.Any("error", err))
		flash(shared.FlashDanger, "Error recording sale. Please try again.")
	}
}
