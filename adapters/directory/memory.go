package directory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/acmebet/gatekeeper/core"
	"github.com/acmebet/gatekeeper/ports"
	"github.com/google/uuid"
)

// MemoryDirectory is an in-memory user directory for tests. Username
// matching is case-insensitive and exact, mirroring the Postgres adapter's
// anchored regex.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]core.User
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: make(map[string]core.User)}
}

var _ ports.UserDirectory = (*MemoryDirectory)(nil)

// FindByUsername resolves a user by anchored case-insensitive username.
func (d *MemoryDirectory) FindByUsername(ctx context.Context, username string) (*core.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, u := range d.users {
		if strings.EqualFold(u.Username, username) {
			u := u
			return &u, nil
		}
	}
	return nil, core.ErrNotFound
}

// FindByUsernameOrAddress resolves a user by username or exact address.
func (d *MemoryDirectory) FindByUsernameOrAddress(ctx context.Context, username, signAddress string) (*core.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, u := range d.users {
		if strings.EqualFold(u.Username, username) {
			u := u
			return &u, nil
		}
		if signAddress != "" && u.SignAddress == signAddress {
			u := u
			return &u, nil
		}
	}
	return nil, core.ErrNotFound
}

// FindByID resolves a user by identifier.
func (d *MemoryDirectory) FindByID(ctx context.Context, id string) (*core.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &u, nil
}

// Create inserts a new user, enforcing the same uniqueness the Postgres
// indexes do.
func (d *MemoryDirectory) Create(ctx context.Context, user *core.User) (*core.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, u := range d.users {
		if strings.EqualFold(u.Username, user.Username) {
			return nil, core.ErrDuplicateKey
		}
		if user.SignAddress != "" && u.SignAddress == user.SignAddress {
			return nil, core.ErrDuplicateKey
		}
	}

	created := *user
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	now := time.Now()
	created.CreatedAt = now
	created.UpdatedAt = now
	d.users[created.ID] = created
	return &created, nil
}

// UpdatePassword persists a new password hash.
func (d *MemoryDirectory) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	d.users[id] = u
	return nil
}
