package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestWithSession(sess *shared.Session) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/reports", nil)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func newSession() *shared.Session {
	return shared.NewSessionManager(nil, "test", "secret", 0, false).NewSessionForTest()
}

func TestRequireLoginRedirectsAnonymous(t *testing.T) {
	m := Middleware{}
	sess := newSession()
	rec := httptest.NewRecorder()

	m.Identity(m.RequireLogin(okHandler())).ServeHTTP(rec, requestWithSession(sess))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, shared.FlashWarning, flash.Kind)
}

func TestRequireLoginAllowsSignedIn(t *testing.T) {
	m := Middleware{}
	sess := newSession()
	sess.SignIn(shared.Identity{UserID: 7, Username: "cashier", Role: shared.RoleUser})
	rec := httptest.NewRecorder()

	m.Identity(m.RequireLogin(okHandler())).ServeHTTP(rec, requestWithSession(sess))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdminRejectsRegularUser(t *testing.T) {
	m := Middleware{}
	sess := newSession()
	sess.SignIn(shared.Identity{UserID: 7, Username: "cashier", Role: shared.RoleUser})
	rec := httptest.NewRecorder()

	m.Identity(m.RequireLogin(m.RequireAdmin(okHandler()))).ServeHTTP(rec, requestWithSession(sess))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, LandingPath, rec.Header().Get("Location"))
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, shared.FlashDanger, flash.Kind)
	assert.Equal(t, "You do not have permission to access this page.", flash.Message)
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	m := Middleware{}
	sess := newSession()
	sess.SignIn(shared.Identity{UserID: 1, Username: "boss", Role: shared.RoleAdmin})
	rec := httptest.NewRecorder()

	m.Identity(m.RequireAdmin(okHandler())).ServeHTTP(rec, requestWithSession(sess))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIdentityIgnoresMalformedUser(t *testing.T) {
	m := Middleware{}
	sess := newSession()
	sess.SetUser("not-a-number")
	rec := httptest.NewRecorder()

	m.Identity(m.RequireLogin(okHandler())).ServeHTTP(rec, requestWithSession(sess))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
}
