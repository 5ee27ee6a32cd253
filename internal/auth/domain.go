package auth

import (
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         shared.Role
	CreatedAt    time.Time
}

// Identity converts the user into the request-scoped identity.
func (u User) Identity() shared.Identity {
	return shared.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	Username        string `validate:"required,max=64"`
	Password        string `validate:"required,min=8,max=72"`
	ConfirmPassword string `validate:"required"`
	AdminKey        string
}
