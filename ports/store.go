package ports

import (
	"context"

	"github.com/acmebet/gatekeeper/core"
)

// SessionStore persists one record per logical session key. Upsert and
// Delete address records by the full (userId, deviceId, platform) triple;
// FindByRefreshToken resolves a record by the presented token value and
// returns only the key projection. No operation takes a lock: two concurrent
// writers on the same key race and the last write wins.
type SessionStore interface {
	Upsert(ctx context.Context, key core.SessionKey, refreshToken, ipAddress string) error
	FindByRefreshToken(ctx context.Context, refreshToken string) (core.SessionKey, error)
	Insert(ctx context.Context, record core.SessionRecord) error
	Delete(ctx context.Context, key core.SessionKey) error
}
