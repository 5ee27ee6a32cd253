package rbac

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Redirect targets used by the gates.
const (
	LoginPath   = "/login"
	LandingPath = "/dashboard"
)

// Middleware wires identity resolution and the login/admin gates.
type Middleware struct {
	Logger *slog.Logger
}

// Identity resolves the session identity once per request and stores it in
// the request context. Requests without a session pass through untouched.
func (m Middleware) Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if id, ok := sess.Identity(); ok {
			r = r.WithContext(shared.ContextWithIdentity(r.Context(), id))
		} else if sess != nil && sess.User() != "" && m.Logger != nil {
			m.Logger.Warn("rbac: discarding malformed session identity", slog.String("value", sess.User()))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireLogin redirects anonymous requests to the login page.
func (m Middleware) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := shared.IdentityFromContext(r.Context()); !ok {
			flash(r, shared.FlashWarning, "Please log in to access this page.")
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin redirects non-admin identities to the landing page. It is
// meant to be stacked after RequireLogin but also rejects anonymous requests.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := shared.IdentityFromContext(r.Context())
		if !ok {
			flash(r, shared.FlashWarning, "Please log in to access this page.")
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		if !id.IsAdmin() {
			if m.Logger != nil {
				m.Logger.Info("rbac: admin route denied", slog.Int64("user_id", id.UserID), slog.String("path", r.URL.Path))
			}
			flash(r, shared.FlashDanger, "You do not have permission to access this page.")
			http.Redirect(w, r, LandingPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func flash(r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.Flash(kind, message)
	}
}
