package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-pos/internal/auth"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	_ "github.com/odyssey-erp/odyssey-pos/testing"
)

const testAdminKey = "s3cret-admin-key"

func newService(repo auth.Repository, audit auth.AuditPort) *auth.Service {
	return auth.NewService(repo, auth.ServiceConfig{AdminKey: testAdminKey, BcryptCost: bcrypt.MinCost}, audit)
}

func TestRegisterAssignsRoleFromAdminKey(t *testing.T) {
	cases := []struct {
		name     string
		adminKey string
		want     shared.Role
	}{
		{name: "matching key", adminKey: testAdminKey, want: shared.RoleAdmin},
		{name: "missing key", adminKey: "", want: shared.RoleUser},
		{name: "wrong key", adminKey: "guess", want: shared.RoleUser},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newService(newMemoryRepo(), nil)
			user, err := svc.Register(context.Background(), auth.RegisterInput{
				Username:        "alice",
				Password:        "password1",
				ConfirmPassword: "password1",
				AdminKey:        tc.adminKey,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, user.Role)
			assert.NotEqual(t, "password1", user.PasswordHash)
		})
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo, nil)
	input := auth.RegisterInput{Username: "bob", Password: "password1", ConfirmPassword: "password1"}

	_, err := svc.Register(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrDuplicate)
	assert.Len(t, repo.users, 1)
}

func TestRegisterRejectsPasswordMismatch(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo, nil)

	_, err := svc.Register(context.Background(), auth.RegisterInput{Username: "carol", Password: "password1", ConfirmPassword: "password2"})
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Equal(t, "Passwords do not match.", shared.UserSafeMessage(err))
	assert.Empty(t, repo.users)
}

func TestRegisterWritesAudit(t *testing.T) {
	audit := &recordingAudit{}
	svc := newService(newMemoryRepo(), audit)

	user, err := svc.Register(context.Background(), auth.RegisterInput{Username: "dave", Password: "password1", ConfirmPassword: "password1"})
	require.NoError(t, err)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, shared.AuditUserRegister, audit.logs[0].Action)
	assert.Equal(t, user.ID, audit.logs[0].ActorID)
}

func TestFindByUsernameIsStable(t *testing.T) {
	svc := newService(newMemoryRepo(), nil)
	_, err := svc.Register(context.Background(), auth.RegisterInput{Username: "erin", Password: "password1", ConfirmPassword: "password1"})
	require.NoError(t, err)

	first, err := svc.FindByUsername(context.Background(), "erin")
	require.NoError(t, err)
	second, err := svc.FindByUsername(context.Background(), "erin")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = svc.FindByUsername(context.Background(), "nobody")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAuthenticate(t *testing.T) {
	svc := newService(newMemoryRepo(), nil)
	_, err := svc.Register(context.Background(), auth.RegisterInput{Username: "frank", Password: "password1", ConfirmPassword: "password1"})
	require.NoError(t, err)

	user, err := svc.Authenticate(context.Background(), "frank", "password1")
	require.NoError(t, err)
	assert.Equal(t, "frank", user.Username)

	_, err = svc.Authenticate(context.Background(), "frank", "wrong-password")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "ghost", "password1")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRegisterLogsAuditFailure(t *testing.T) {
	var buf bytes.Buffer
	audit := &recordingAudit{err: errors.New("audit table missing")}
	svc := auth.NewService(newMemoryRepo(), auth.ServiceConfig{
		AdminKey:   testAdminKey,
		BcryptCost: bcrypt.MinCost,
		Logger:     slog.New(slog.NewTextHandler(&buf, nil)),
	}, audit)

	user, err := svc.Register(context.Background(), auth.RegisterInput{Username: "carol", Password: "password1", ConfirmPassword: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)
	require.Len(t, audit.logs, 1)
	assert.Contains(t, buf.String(), "auth: audit")
	assert.Contains(t, buf.String(), "audit table missing")
}
