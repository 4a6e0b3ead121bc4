package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process Store for tests and local development.
// A zero TTL keeps entries forever.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) expiry() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(s.ttl)
}

// Get returns the value and slides its expiry.
func (s *MemoryStore) Get(_ context.Context, sessionID string, key Key) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := redisKey(sessionID, key)
	e, ok := s.entries[k]
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, k)
		return "", false, nil
	}
	e.expiresAt = s.expiry()
	s.entries[k] = e
	return e.value, true, nil
}

// Set stores value.
func (s *MemoryStore) Set(_ context.Context, sessionID string, key Key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[redisKey(sessionID, key)] = memoryEntry{value: value, expiresAt: s.expiry()}
	return nil
}

// Delete removes the key.
func (s *MemoryStore) Delete(_ context.Context, sessionID string, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, redisKey(sessionID, key))
	return nil
}
