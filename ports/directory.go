package ports

import (
	"context"

	"github.com/acmebet/gatekeeper/core"
)

// UserDirectory is the external user store. Lookups by username are
// case-insensitive but anchored: "Alice" matches "ALICE" and never "Ali".
// Misses return core.ErrNotFound; uniqueness violations on Create return
// core.ErrDuplicateKey so the service can tell them apart from other
// persistence failures.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (*core.User, error)
	FindByUsernameOrAddress(ctx context.Context, username, signAddress string) (*core.User, error)
	FindByID(ctx context.Context, id string) (*core.User, error)
	Create(ctx context.Context, user *core.User) (*core.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}
