package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// Maximum number of fallback limiters to keep in memory
	maxFallbackLimiters = 10000
	// Time after which an inactive limiter is removed
	fallbackCleanupInterval = 5 * time.Minute
	// Limiter is considered inactive if not used for this duration
	fallbackLimiterTTL = 15 * time.Minute
)

type fallbackEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Fallback is a per-client in-process token bucket used when the shared token
// store is unreachable and the configured policy is fail-open. It degrades
// limiting to per-instance enforcement instead of admitting everything.
type Fallback struct {
	mu       sync.Mutex
	limiters map[string]*fallbackEntry
}

// NewFallback creates a Fallback and starts its cleanup loop, which runs
// until ctx is cancelled.
func NewFallback(ctx context.Context) *Fallback {
	f := &Fallback{
		limiters: make(map[string]*fallbackEntry),
	}
	go f.cleanupLoop(ctx)
	return f
}

// Allow reports whether the client may proceed under the given policy quota.
// Each (namespace, client) key gets its own token bucket refilling at
// quota/window with a burst of quota.
func (f *Fallback) Allow(key string, quota int, window time.Duration) bool {
	f.mu.Lock()
	entry, exists := f.limiters[key]
	if !exists {
		entry = &fallbackEntry{
			limiter: rate.NewLimiter(rate.Limit(float64(quota)/window.Seconds()), quota),
		}
		f.limiters[key] = entry
	}
	entry.lastAccess = time.Now()
	f.mu.Unlock()

	return entry.limiter.Allow()
}

func (f *Fallback) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(fallbackCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.cleanup()
		}
	}
}

// cleanup removes limiters that haven't been used recently, then evicts the
// oldest entries if the map is still over the cap.
func (f *Fallback) cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	for key, entry := range f.limiters {
		if now.Sub(entry.lastAccess) > fallbackLimiterTTL {
			delete(f.limiters, key)
		}
	}

	for len(f.limiters) > maxFallbackLimiters {
		var oldestKey string
		var oldestTime time.Time
		first := true
		for key, entry := range f.limiters {
			if first || entry.lastAccess.Before(oldestTime) {
				oldestKey = key
				oldestTime = entry.lastAccess
				first = false
			}
		}
		delete(f.limiters, oldestKey)
	}
}
