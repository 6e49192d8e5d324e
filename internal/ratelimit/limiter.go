package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"fintrack/internal/domain"
)

// Policy namespaces. Write is the default for state-changing requests.
const (
	NamespaceRead  = "read"
	NamespaceWrite = "write"
	NamespaceAuth  = "auth"
)

// DefaultPolicies returns the built-in (quota, window) pairs per namespace.
func DefaultPolicies() map[string]domain.RateLimitPolicy {
	return map[string]domain.RateLimitPolicy{
		NamespaceRead:  {Namespace: NamespaceRead, Quota: 30, Window: 10 * time.Second},
		NamespaceWrite: {Namespace: NamespaceWrite, Quota: 10, Window: 10 * time.Second},
		NamespaceAuth:  {Namespace: NamespaceAuth, Quota: 5, Window: 60 * time.Second},
	}
}

// Limiter decides request admission with a sliding-window counter.
//
// Time is divided into window-sized buckets per (namespace, client) key. The
// effective count is the current bucket's counter plus the previous bucket's
// counter weighted by how much of the previous bucket still overlaps the
// sliding window. Two adjacent buckets therefore cannot be combined to admit
// 2x quota at a boundary, which a fixed-window counter would allow.
//
// The store increment is issued before the decision and is never rolled back:
// a caller that is cancelled after the increment has still spent quota
// (at-least-once accounting).
type Limiter struct {
	store    TokenStore
	fallback *Fallback
	policies map[string]domain.RateLimitPolicy
	failOpen bool
	now      func() time.Time
}

// NewLimiter creates a Limiter. failOpen selects the behavior when the token
// store is unreachable: true degrades to the per-instance fallback limiter,
// false rejects all traffic until the store recovers.
func NewLimiter(store TokenStore, fallback *Fallback, policies map[string]domain.RateLimitPolicy, failOpen bool) *Limiter {
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &Limiter{
		store:    store,
		fallback: fallback,
		policies: policies,
		failOpen: failOpen,
		now:      time.Now,
	}
}

// Policy returns the policy for a namespace, defaulting to write.
func (l *Limiter) Policy(namespace string) domain.RateLimitPolicy {
	if p, ok := l.policies[namespace]; ok {
		return p
	}
	return l.policies[NamespaceWrite]
}

// Allow admits or rejects one request from client under the namespace policy.
// The returned decision is always populated, including on store failure.
//
// The window slides over two fixed buckets, so a burst keeps partial weight
// into the next bucket and full quota returns only once the bucket holding it
// expires, up to two windows after the burst.
func (l *Limiter) Allow(ctx context.Context, namespace, client string) (domain.RateLimitDecision, error) {
	policy := l.Policy(namespace)
	now := l.now()

	bucketStart := now.Truncate(policy.Window)
	curKey := bucketKey(policy.Namespace, client, bucketStart.Unix())
	prevKey := bucketKey(policy.Namespace, client, bucketStart.Add(-policy.Window).Unix())
	resetAt := bucketStart.Add(policy.Window)

	// TTL of two windows keeps the previous bucket readable for the whole
	// lifetime of the current one; expiry handles cleanup, never deletion.
	count, err := l.store.Increment(ctx, curKey, 2*policy.Window)
	if err != nil {
		return l.storeFailure(namespace, client, policy, now, err)
	}

	prev, err := l.store.Get(ctx, prevKey)
	if err != nil {
		return l.storeFailure(namespace, client, policy, now, err)
	}

	elapsed := now.Sub(bucketStart)
	weight := 1 - float64(elapsed)/float64(policy.Window)
	effective := float64(count) + float64(prev)*weight

	remaining := policy.Quota - int(math.Ceil(effective))
	if remaining < 0 {
		remaining = 0
	}

	return domain.RateLimitDecision{
		Admitted:  effective <= float64(policy.Quota),
		Limit:     policy.Quota,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// storeFailure applies the configured fail direction when the token store
// errors. Fail-open consults the in-process fallback so an outage degrades to
// single-instance limiting instead of a free-for-all; fail-closed rejects.
func (l *Limiter) storeFailure(namespace, client string, policy domain.RateLimitPolicy, now time.Time, err error) (domain.RateLimitDecision, error) {
	decision := domain.RateLimitDecision{
		Limit:     policy.Quota,
		Remaining: 0,
		ResetAt:   now.Add(policy.Window),
	}

	if !l.failOpen {
		return decision, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	slog.Warn("token store unavailable, using fallback limiter",
		slog.String("namespace", namespace),
		slog.String("error", err.Error()),
	)

	if l.fallback != nil {
		decision.Admitted = l.fallback.Allow(namespace+":"+client, policy.Quota, policy.Window)
	} else {
		decision.Admitted = true
	}
	return decision, nil
}

func bucketKey(namespace, client string, bucket int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", namespace, client, bucket)
}
