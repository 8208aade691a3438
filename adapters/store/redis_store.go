package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/acmebet/gatekeeper/core"
	"github.com/acmebet/gatekeeper/ports"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one hash per session key plus a secondary index from the
// refresh-token digest back to the key, so refresh can resolve a session by
// the presented token value. No transaction guards concurrent writers on the
// same key: the last write wins.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a session store on an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "gatekeeper:",
	}
}

var _ ports.SessionStore = (*RedisStore)(nil)

func (s *RedisStore) sessionKey(key core.SessionKey) string {
	return fmt.Sprintf("%ssession:%s:%s:%s", s.prefix, key.UserID, key.DeviceID, key.Platform)
}

func (s *RedisStore) tokenKey(refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return s.prefix + "rt:" + hex.EncodeToString(sum[:])
}

// Upsert writes the record for a key, replacing any previous refresh token
// and IP. The old token's index entry is removed so a rotated-out token no
// longer resolves.
func (s *RedisStore) Upsert(ctx context.Context, key core.SessionKey, refreshToken, ipAddress string) error {
	key = key.Normalize()
	redisKey := s.sessionKey(key)
	now := time.Now()

	prev, err := s.client.HGet(ctx, redisKey, "refreshToken").Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("read previous session: %w", err)
	}
	if prev != "" && prev != refreshToken {
		if err := s.client.Del(ctx, s.tokenKey(prev)).Err(); err != nil {
			return fmt.Errorf("drop stale token index: %w", err)
		}
	}

	fields := map[string]interface{}{
		"userId":       key.UserID,
		"deviceId":     key.DeviceID,
		"platform":     key.Platform,
		"refreshToken": refreshToken,
		"ipAddress":    ipAddress,
		"updatedAt":    now.Format(time.RFC3339Nano),
	}
	pipe := s.client.TxPipeline()
	pipe.HSetNX(ctx, redisKey, "createdAt", now.Format(time.RFC3339Nano))
	pipe.HSet(ctx, redisKey, fields)
	pipe.Set(ctx, s.tokenKey(refreshToken), s.encodeKey(key), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// FindByRefreshToken resolves the session key holding the presented token.
// Misses return core.ErrNotFound.
func (s *RedisStore) FindByRefreshToken(ctx context.Context, refreshToken string) (core.SessionKey, error) {
	raw, err := s.client.Get(ctx, s.tokenKey(refreshToken)).Result()
	if err == redis.Nil {
		return core.SessionKey{}, core.ErrNotFound
	}
	if err != nil {
		return core.SessionKey{}, fmt.Errorf("lookup refresh token: %w", err)
	}
	return s.decodeKey(raw)
}

// Insert writes a fresh record for the record's key. An existing record
// under the same triple is replaced, keeping the one-record-per-key
// invariant, and the replaced record's token index is dropped so a
// rotated-out token no longer resolves.
func (s *RedisStore) Insert(ctx context.Context, record core.SessionRecord) error {
	key := record.Key()
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	prev, err := s.client.HGet(ctx, s.sessionKey(key), "refreshToken").Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("read previous session: %w", err)
	}
	fields := map[string]interface{}{
		"userId":       key.UserID,
		"deviceId":     key.DeviceID,
		"platform":     key.Platform,
		"refreshToken": record.RefreshToken,
		"ipAddress":    record.IPAddress,
		"createdAt":    record.CreatedAt.Format(time.RFC3339Nano),
		"updatedAt":    now.Format(time.RFC3339Nano),
	}
	pipe := s.client.TxPipeline()
	if prev != "" && prev != record.RefreshToken {
		pipe.Del(ctx, s.tokenKey(prev))
	}
	pipe.HSet(ctx, s.sessionKey(key), fields)
	pipe.Set(ctx, s.tokenKey(record.RefreshToken), s.encodeKey(key), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Delete removes the record for a key and its token index. Deleting a
// missing key succeeds.
func (s *RedisStore) Delete(ctx context.Context, key core.SessionKey) error {
	key = key.Normalize()
	redisKey := s.sessionKey(key)

	token, err := s.client.HGet(ctx, redisKey, "refreshToken").Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("read session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, redisKey)
	if token != "" {
		pipe.Del(ctx, s.tokenKey(token))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) encodeKey(key core.SessionKey) string {
	b, _ := json.Marshal(key)
	return string(b)
}

func (s *RedisStore) decodeKey(raw string) (core.SessionKey, error) {
	var key core.SessionKey
	if err := json.Unmarshal([]byte(raw), &key); err != nil {
		return core.SessionKey{}, fmt.Errorf("decode session key: %w", err)
	}
	return key, nil
}
