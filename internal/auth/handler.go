package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/internal/view"
)

// Redirect targets after auth flows.
const (
	loginPath     = "/login"
	dashboardPath = "/dashboard"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers public auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
}

// Logout clears the identity and redirects to the login page.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.SignOut()
		sess.Flash(shared.FlashInfo, "You have been logged out.")
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

type loginForm struct {
	Username string `validate:"required,max=64"`
	Password string `validate:"required"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

type registerForm struct {
	Username string
}

type registerPageData struct {
	Form   registerForm
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/login.html", "Login", loginPageData{Errors: map[string]string{}})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := loginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	errs := h.validate(form)
	if len(errs) == 0 {
		user, err := h.service.Authenticate(r.Context(), form.Username, form.Password)
		switch {
		case err == nil:
			sess := shared.SessionFromContext(r.Context())
			if sess == nil {
				h.logger.Error("session missing during login")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if err := h.sessionManager.Renew(r.Context(), sess); err != nil {
				h.logger.Warn("renew session", slog.Any("error", err))
			}
			sess.SignIn(user.Identity())
			sess.Flash(shared.FlashSuccess, "Logged in successfully!")
			h.logger.Info("user logged in", slog.Int64("user_id", user.ID), slog.String("role", string(user.Role)))
			http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
			return
		case errors.Is(err, shared.ErrInvalidCredentials):
			errs["general"] = "Invalid username or password."
		default:
			h.logger.Error("authenticate", slog.Any("error", err))
			errs["general"] = shared.UserSafeMessage(err)
		}
	}
	form.Password = ""
	h.render(w, r, http.StatusBadRequest, "pages/login.html", "Login", loginPageData{Form: form, Errors: errs})
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/register.html", "Register", registerPageData{Errors: map[string]string{}})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	input := RegisterInput{
		Username:        r.PostFormValue("username"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
		AdminKey:        r.PostFormValue("admin_key"),
	}
	errs := h.validate(input)
	if len(errs) == 0 {
		user, err := h.service.Register(r.Context(), input)
		switch {
		case err == nil:
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				sess.Flash(shared.FlashSuccess, "Registration successful! Please log in.")
			}
			h.logger.Info("user registered", slog.Int64("user_id", user.ID), slog.String("role", string(user.Role)))
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
			return
		case errors.Is(err, shared.ErrDuplicate):
			errs["Username"] = "Username already exists. Please choose a different one."
		case errors.Is(err, shared.ErrValidation):
			errs["general"] = shared.UserSafeMessage(err)
		default:
			h.logger.Error("register user", slog.Any("error", err))
			errs["general"] = shared.UserSafeMessage(err)
		}
	}
	data := registerPageData{Form: registerForm{Username: input.Username}, Errors: errs}
	h.render(w, r, http.StatusBadRequest, "pages/register.html", "Register", data)
}

func (h *Handler) validate(form any) map[string]string {
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				errs[fieldErr.Field()] = fieldMessage(fieldErr)
			}
		}
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required."
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters."
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters."
	}
	return fe.Field() + " is invalid."
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	page := view.NewPage(r, h.csrfManager, title, data)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, name, page); err != nil {
		h.logger.Error("render "+name, slog.Any("error", err))
	}
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *Handler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// HandleRegisterForTest exposes the POST register handler for tests.
func (h *Handler) HandleRegisterForTest(w http.ResponseWriter, r *http.Request) {
	h.handleRegister(w, r)
}
