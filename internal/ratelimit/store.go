// Package ratelimit implements sliding-window request admission backed by a
// shared token store. The store is the only shared mutable state; the limiter
// itself performs no locking and relies on the store to serialize concurrent
// increments for the same key.
package ratelimit

import (
	"context"
	"time"
)

// TokenStore is the narrow port the limiter needs from the distributed
// counter backend. Increment must be atomic with respect to concurrent
// callers of the same key and must arm the key's expiry on first increment.
type TokenStore interface {
	// Increment adds one to the counter at key and returns the new value.
	// The key expires ttl after its first increment.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Get returns the counter at key, or 0 if the key does not exist.
	Get(ctx context.Context, key string) (int64, error)
}
