package domain

import (
	"errors"
	"time"
)

var ErrStoreUnavailable = errors.New("token store unavailable")

// RateLimitPolicy pairs a request quota with the window it applies to.
// Policies are keyed by namespace so reads, writes, and auth attempts can be
// throttled independently for the same client.
type RateLimitPolicy struct {
	Namespace string
	Quota     int
	Window    time.Duration
}

// RateLimitDecision is the outcome of one admission check.
// Remaining is never negative; ResetAt is when a rejected client can retry.
type RateLimitDecision struct {
	Admitted  bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}
