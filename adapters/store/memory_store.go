package store

import (
	"context"
	"sync"
	"time"

	"github.com/acmebet/gatekeeper/core"
	"github.com/acmebet/gatekeeper/ports"
)

// MemoryStore is an in-memory session store mirroring the Redis adapter's
// semantics. It backs service-level tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[core.SessionKey]core.SessionRecord
	byToken map[string]core.SessionKey
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[core.SessionKey]core.SessionRecord),
		byToken: make(map[string]core.SessionKey),
	}
}

var _ ports.SessionStore = (*MemoryStore)(nil)

// Upsert creates or replaces the record for a key.
func (s *MemoryStore) Upsert(ctx context.Context, key core.SessionKey, refreshToken, ipAddress string) error {
	key = key.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	record := core.SessionRecord{
		UserID:       key.UserID,
		DeviceID:     key.DeviceID,
		Platform:     key.Platform,
		RefreshToken: refreshToken,
		IPAddress:    ipAddress,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if prev, ok := s.records[key]; ok {
		record.CreatedAt = prev.CreatedAt
		delete(s.byToken, prev.RefreshToken)
	}
	s.records[key] = record
	s.byToken[refreshToken] = key
	return nil
}

// FindByRefreshToken resolves the key holding the presented token.
func (s *MemoryStore) FindByRefreshToken(ctx context.Context, refreshToken string) (core.SessionKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.byToken[refreshToken]
	if !ok {
		return core.SessionKey{}, core.ErrNotFound
	}
	return key, nil
}

// Insert writes a fresh record, replacing any record under the same key.
func (s *MemoryStore) Insert(ctx context.Context, record core.SessionRecord) error {
	key := record.Key()
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.DeviceID = key.DeviceID
	record.Platform = key.Platform
	if prev, ok := s.records[key]; ok {
		delete(s.byToken, prev.RefreshToken)
	}
	s.records[key] = record
	s.byToken[record.RefreshToken] = key
	return nil
}

// Delete removes the record for a key. Missing keys succeed.
func (s *MemoryStore) Delete(ctx context.Context, key core.SessionKey) error {
	key = key.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.records[key]; ok {
		delete(s.byToken, prev.RefreshToken)
		delete(s.records, key)
	}
	return nil
}

// Get returns the record for a key, for tests.
func (s *MemoryStore) Get(key core.SessionKey) (core.SessionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[key.Normalize()]
	return record, ok
}

// Len reports how many session records exist, for tests.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}
