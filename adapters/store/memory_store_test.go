package store

import (
	"context"
	"testing"

	"github.com/acmebet/gatekeeper/core"
	"github.com/stretchr/testify/require"
)

func TestUpsertOverwritesSameKey(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	key := core.DefaultSessionKey("u1")

	require.NoError(t, s.Upsert(ctx, key, "token-1", "1.1.1.1"))
	require.NoError(t, s.Upsert(ctx, key, "token-2", "2.2.2.2"))

	require.Equal(t, 1, s.Len())

	record, ok := s.Get(key)
	require.True(t, ok)
	require.Equal(t, "token-2", record.RefreshToken)
	require.Equal(t, "2.2.2.2", record.IPAddress)

	// The rotated-out token no longer resolves.
	_, err := s.FindByRefreshToken(ctx, "token-1")
	require.ErrorIs(t, err, core.ErrNotFound)

	got, err := s.FindByRefreshToken(ctx, "token-2")
	require.NoError(t, err)
	require.Equal(t, key, got)
}

func TestUpsertNormalizesDevicelessKey(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, core.SessionKey{UserID: "u1"}, "token-1", ""))

	record, ok := s.Get(core.DefaultSessionKey("u1"))
	require.True(t, ok)
	require.Equal(t, core.DefaultDeviceID, record.DeviceID)
	require.Equal(t, core.DefaultPlatform, record.Platform)
}

func TestInsertAccumulatesPerDevice(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, core.DefaultSessionKey("u1"), "token-0", ""))
	require.NoError(t, s.Insert(ctx, core.SessionRecord{
		UserID: "u1", DeviceID: "d1", Platform: "ios", RefreshToken: "token-1",
	}))
	require.NoError(t, s.Insert(ctx, core.SessionRecord{
		UserID: "u1", DeviceID: "d2", Platform: "android", RefreshToken: "token-2",
	}))

	require.Equal(t, 3, s.Len(), "one row per device plus the device-less row")

	// Re-inserting under an existing triple replaces, never duplicates.
	require.NoError(t, s.Insert(ctx, core.SessionRecord{
		UserID: "u1", DeviceID: "d1", Platform: "ios", RefreshToken: "token-3",
	}))
	require.Equal(t, 3, s.Len())

	_, err := s.FindByRefreshToken(ctx, "token-1")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	key := core.DefaultSessionKey("u1")

	require.NoError(t, s.Upsert(ctx, key, "token-1", ""))
	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key), "deleting a missing row succeeds")
	require.Equal(t, 0, s.Len())

	_, err := s.FindByRefreshToken(ctx, "token-1")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestFindByRefreshTokenMiss(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.FindByRefreshToken(context.Background(), "nope")
	require.ErrorIs(t, err, core.ErrNotFound)
}
