package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

func newManager(t *testing.T) (*shared.SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewSessionManager(client, "test_session", "secret", time.Hour, false), mr
}

func roundTrip(t *testing.T, sm *shared.SessionManager, sess *shared.Session) *shared.Session {
	t.Helper()
	ctx := context.Background()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, sm.Commit(ctx, rec, req, sess))

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		next.AddCookie(c)
	}
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	return loaded
}

func TestFlashSurvivesRedirect(t *testing.T) {
	sm, _ := newManager(t)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.Flash(shared.FlashSuccess, "Sold 3 units of Apples.")

	loaded := roundTrip(t, sm, sess)
	assert.Equal(t, sess.ID, loaded.ID)

	msgs := loaded.PopFlashes()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Sold 3 units of Apples.", msgs[0].Message)

	again := roundTrip(t, sm, loaded)
	assert.Empty(t, again.PopFlashes())
}

func TestIdentityRoundTrip(t *testing.T) {
	sm, _ := newManager(t)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SignIn(shared.Identity{UserID: 42, Username: "ana", Role: shared.RoleAdmin})

	loaded := roundTrip(t, sm, sess)
	id, ok := loaded.Identity()
	require.True(t, ok)
	assert.Equal(t, int64(42), id.UserID)
	assert.Equal(t, "ana", id.Username)
	assert.True(t, id.IsAdmin())

	loaded.SignOut()
	out := roundTrip(t, sm, loaded)
	_, ok = out.Identity()
	assert.False(t, ok)
}

func TestUnknownCookieGetsFreshSession(t *testing.T) {
	sm, _ := newManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: "attacker-chosen"})

	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "attacker-chosen", sess.ID)
}

func TestRenewDropsOldRecord(t *testing.T) {
	sm, mr := newManager(t)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	loaded := roundTrip(t, sm, sess)
	oldID := loaded.ID

	require.NoError(t, sm.Renew(context.Background(), loaded))
	assert.NotEqual(t, oldID, loaded.ID)
	assert.False(t, mr.Exists("session:"+oldID))
}

func TestCSRFToken(t *testing.T) {
	sm, _ := newManager(t)
	csrf := shared.NewCSRFManager("csrfsecret")
	sess := sm.NewSessionForTest()

	token, err := csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	again, err := csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	assert.NoError(t, csrf.VerifyToken(context.Background(), sess, token))
	assert.ErrorIs(t, csrf.VerifyToken(context.Background(), sess, "forged"), shared.ErrCSRFTokenMismatch)
	assert.ErrorIs(t, csrf.VerifyToken(context.Background(), sess, ""), shared.ErrCSRFTokenMissing)
}

func TestUserSafeMessage(t *testing.T) {
	assert.Equal(t, "Passwords do not match.", shared.UserSafeMessage(shared.Invalid("Passwords do not match.")))
	assert.ErrorIs(t, shared.Invalid("x"), shared.ErrValidation)
	assert.Equal(t, "Something went wrong. Please try again.", shared.UserSafeMessage(assert.AnError))
}
