package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/auth"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

type memoryRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]auth.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[string]auth.User)}
}

func (m *memoryRepo) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[username]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &user, nil
}

func (m *memoryRepo) CreateUser(ctx context.Context, username, passwordHash string, role shared.Role) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; ok {
		return 0, shared.ErrDuplicate
	}
	m.nextID++
	m.users[username] = auth.User{ID: m.nextID, Username: username, PasswordHash: passwordHash, Role: role, CreatedAt: time.Now()}
	return m.nextID, nil
}

type recordingAudit struct {
	logs []shared.AuditLog
	err  error
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return a.err
}
