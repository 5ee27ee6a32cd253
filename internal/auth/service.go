package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// AdminKey grants the admin role at registration when matched.
	AdminKey string
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Logger     *slog.Logger
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	audit    AuditPort
	adminKey []byte
	cost     int
	logger   *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, cfg ServiceConfig, audit AuditPort) *Service {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, adminKey: []byte(cfg.AdminKey), cost: cost, logger: logger}
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// FindByUsername looks up a user without checking credentials.
func (s *Service) FindByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.FindByUsername(ctx, strings.TrimSpace(username))
}

// Register creates a new account. The role is admin only when the caller
// supplied an admin key equal to the configured secret.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, shared.Invalid("Username and password are required.")
	}
	if input.Password != input.ConfirmPassword {
		return nil, shared.Invalid("Passwords do not match.")
	}

	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, shared.ErrDuplicate
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	role := s.roleFor(input.AdminKey)
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	id, err := s.repo.CreateUser(ctx, username, string(hash), role)
	if err != nil {
		return nil, err
	}
	user := &User{ID: id, Username: username, PasswordHash: string(hash), Role: role}

	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  id,
			Action:   shared.AuditUserRegister,
			Entity:   "user",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"username": username, "role": string(role)},
		})
		if err != nil {
			s.logger.Warn("auth: audit", slog.Int64("user_id", id), slog.Any("error", err))
		}
	}
	return user, nil
}

func (s *Service) roleFor(adminKey string) shared.Role {
	if adminKey == "" || len(s.adminKey) == 0 {
		return shared.RoleUser
	}
	if subtle.ConstantTimeCompare([]byte(adminKey), s.adminKey) == 1 {
		return shared.RoleAdmin
	}
	return shared.RoleUser
}
