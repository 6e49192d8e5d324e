package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore is an in-process TokenStore. It is suitable for tests and for
// single-instance deployments; it cannot coordinate counters across servers.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates a MemoryStore. If cleanupInterval is positive, a
// background goroutine evicts expired entries until ctx is cancelled.
func NewMemoryStore(ctx context.Context, cleanupInterval time.Duration) *MemoryStore {
	store := &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}

	if cleanupInterval > 0 {
		go store.runCleanup(ctx, cleanupInterval)
	}

	return store
}

func (s *MemoryStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, found := s.entries[key]
	if found && now.After(e.expiresAt) {
		found = false
	}

	if !found {
		e = memoryEntry{count: 1, expiresAt: now.Add(ttl)}
	} else {
		e.count++
	}

	s.entries[key] = e
	return e.count, nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, found := s.entries[key]
	if !found || s.now().After(e.expiresAt) {
		return 0, nil
	}
	return e.count, nil
}

func (s *MemoryStore) runCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			now := s.now()
			for key, e := range s.entries {
				if now.After(e.expiresAt) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
