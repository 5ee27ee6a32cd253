package products

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/internal/view"
)

// Handler serves the dashboard and product admin pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers the dashboard on r and the admin pages behind admin.
func (h *Handler) MountRoutes(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Get("/dashboard", h.Dashboard)
	r.Group(func(ar chi.Router) {
		ar.Use(admin)
		ar.Get("/add_product", h.ShowAdd)
		ar.Post("/add_product", h.Add)
		ar.Get("/edit_product/{id}", h.ShowEdit)
		ar.Post("/update_product/{id}", h.Update)
	})
}

type dashboardData struct {
	Products  []Product
	SaleToken string
}

type formData struct {
	ID     int64
	Form   ProductForm
	Errors map[string]string
}

// Dashboard lists products with a sell form per row.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		http.Error(w, "Unable to load products", http.StatusInternalServerError)
		return
	}
	h.render(w, r, http.StatusOK, "pages/dashboard.html", "Dashboard", dashboardData{Products: items, SaleToken: uuid.NewString()})
}

// ShowAdd renders the empty product form.
func (h *Handler) ShowAdd(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/add_product.html", "Add Product", formData{Errors: map[string]string{}})
}

// Add creates a product from the submitted form.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := formFromRequest(r)
	product, err := h.service.AddProduct(r.Context(), actorID(r), form)
	if err != nil {
		msg := shared.UserSafeMessage(err)
		if !errors.Is(err, shared.ErrValidation) {
			h.logger.Error("add product", slog.Any("error", err))
			msg = "Failed to add product due to a database error."
		}
		h.render(w, r, http.StatusBadRequest, "pages/add_product.html", "Add Product", formData{Form: form, Errors: map[string]string{"general": msg}})
		return
	}
	h.flash(r, shared.FlashSuccess, fmt.Sprintf("Product \"%s\" added successfully!", product.Name))
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// ShowEdit renders the edit form pre-filled with the product.
func (h *Handler) ShowEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("get product", slog.Int64("product_id", id), slog.Any("error", err))
		}
		h.notFound(w, r)
		return
	}
	h.render(w, r, http.StatusOK, "pages/edit_product.html", "Edit Product", formData{ID: id, Form: product.Form(), Errors: map[string]string{}})
}

// Update overwrites a product from the submitted form.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), actorID(r), id, formFromRequest(r))
	switch {
	case err == nil:
		h.flash(r, shared.FlashSuccess, fmt.Sprintf("Product \"%s\" updated successfully!", product.Name))
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	case errors.Is(err, shared.ErrNotFound):
		h.notFound(w, r)
	case errors.Is(err, shared.ErrValidation):
		h.flash(r, shared.FlashDanger, shared.UserSafeMessage(err))
		http.Redirect(w, r, "/edit_product/"+strconv.FormatInt(id, 10), http.StatusSeeOther)
	default:
		h.logger.Error("update product", slog.Int64("product_id", id), slog.Any("error", err))
		h.flash(r, shared.FlashDanger, "Failed to update product due to a database error.")
		http.Redirect(w, r, "/edit_product/"+strconv.FormatInt(id, 10), http.StatusSeeOther)
	}
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.flash(r, shared.FlashDanger, "Product not found!")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) flash(r *http.Request, kind, msg string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.Flash(kind, msg)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	page := view.NewPage(r, h.csrf, title, data)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, name, page); err != nil {
		h.logger.Error("render "+name, slog.Any("error", err))
	}
}

func formFromRequest(r *http.Request) ProductForm {
	return ProductForm{
		Name:          r.PostFormValue("name"),
		Price:         r.PostFormValue("price"),
		Quantity:      r.PostFormValue("quantity"),
		Category:      r.PostFormValue("category"),
		StockQuantity: r.PostFormValue("stock_quantity"),
	}
}

func productID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func actorID(r *http.Request) int64 {
	id, _ := shared.IdentityFromContext(r.Context())
	return id.UserID
}
