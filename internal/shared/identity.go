package shared

import (
	"strconv"
	"strings"
)

// Role is the coarse permission tier fixed at account creation.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Session keys carrying identity beside the user id.
const (
	SessionKeyUsername = "username"
	SessionKeyRole     = "role"
)

// Identity is the request-scoped view of the authenticated user.
type Identity struct {
	UserID   int64
	Username string
	Role     Role
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// SignIn records the identity on the session.
func (s *Session) SignIn(id Identity) {
	s.SetUser(strconv.FormatInt(id.UserID, 10))
	s.Set(SessionKeyUsername, id.Username)
	s.Set(SessionKeyRole, string(id.Role))
}

// SignOut removes identity keys while keeping the session (and its flashes).
func (s *Session) SignOut() {
	s.SetUser("")
	s.Delete(SessionKeyUsername)
	s.Delete(SessionKeyRole)
}

// Identity rebuilds the identity stored on the session.
func (s *Session) Identity() (Identity, bool) {
	if s == nil {
		return Identity{}, false
	}
	raw := strings.TrimSpace(s.User())
	if raw == "" {
		return Identity{}, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return Identity{}, false
	}
	role := Role(s.Get(SessionKeyRole))
	if !role.Valid() {
		role = RoleUser
	}
	return Identity{UserID: id, Username: s.Get(SessionKeyUsername), Role: role}, true
}
