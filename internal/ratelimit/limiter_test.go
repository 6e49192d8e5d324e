package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/domain"
)

// fakeClock lets tests slide the limiter window deterministically.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestLimiter(t *testing.T, quota int, window time.Duration, failOpen bool) (*Limiter, *fakeClock) {
	t.Helper()

	clock := &fakeClock{current: time.Unix(1_700_000_000, 0).Truncate(window)}

	store := NewMemoryStore(context.Background(), 0)
	store.now = clock.now

	policies := map[string]domain.RateLimitPolicy{
		NamespaceWrite: {Namespace: NamespaceWrite, Quota: quota, Window: window},
	}

	lim := NewLimiter(store, nil, policies, failOpen)
	lim.now = clock.now
	return lim, clock
}

func TestLimiter_QuotaEnforcement(t *testing.T) {
	lim, _ := newTestLimiter(t, 3, 10*time.Second, false)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision, err := lim.Allow(ctx, NamespaceWrite, "1.2.3.4")
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i+1, err)
		}
		if !decision.Admitted {
			t.Fatalf("request %d: expected admission", i+1)
		}
		wantRemaining := 3 - (i + 1)
		if decision.Remaining != wantRemaining {
			t.Errorf("request %d: expected remaining %d, got %d", i+1, wantRemaining, decision.Remaining)
		}
	}

	decision, err := lim.Allow(ctx, NamespaceWrite, "1.2.3.4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Admitted {
		t.Error("request over quota should be rejected")
	}
	if decision.Remaining != 0 {
		t.Errorf("rejected request: expected remaining 0, got %d", decision.Remaining)
	}
}

func TestLimiter_PerClientIsolation(t *testing.T) {
	lim, _ := newTestLimiter(t, 1, 10*time.Second, false)
	ctx := context.Background()

	decision, err := lim.Allow(ctx, NamespaceWrite, "1.2.3.4")
	if err != nil || !decision.Admitted {
		t.Fatalf("first client should be admitted, got %+v, %v", decision, err)
	}

	decision, err = lim.Allow(ctx, NamespaceWrite, "5.6.7.8")
	if err != nil || !decision.Admitted {
		t.Fatalf("other client should be admitted independently, got %+v, %v", decision, err)
	}

	decision, _ = lim.Allow(ctx, NamespaceWrite, "1.2.3.4")
	if decision.Admitted {
		t.Error("first client over quota should be rejected")
	}
}

func TestLimiter_WindowSlides(t *testing.T) {
	lim, clock := newTestLimiter(t, 5, 10*time.Second, false)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		decision, err := lim.Allow(ctx, NamespaceWrite, "1.2.3.4")
		if err != nil || !decision.Admitted {
			t.Fatalf("initial burst request %d should be admitted", i+1)
		}
	}

	// Once the window has fully slid past the burst, the full quota is
	// available again.
	clock.advance(20 * time.Second)

	for i := 0; i < 5; i++ {
		decision, err := lim.Allow(ctx, NamespaceWrite, "1.2.3.4")
		if err != nil || !decision.Admitted {
			t.Fatalf("post-slide request %d should be admitted, got %+v", i+1, decision)
		}
	}
}

func TestLimiter_NoDoubleBurstAtBoundary(t *testing.T) {
	lim, clock := newTestLimiter(t, 5, 10*time.Second, false)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if decision, _ := lim.Allow(ctx, NamespaceWrite, "1.2.3.4"); !decision.Admitted {
			t.Fatalf("burst request %d should be admitted", i+1)
		}
	}

	// Just over the bucket boundary: most of the previous bucket still
	// overlaps the sliding window, so a second full burst must not fit.
	clock.advance(11 * time.Second)

	admitted := 0
	for i := 0; i < 5; i++ {
		if decision, _ := lim.Allow(ctx, NamespaceWrite, "1.2.3.4"); decision.Admitted {
			admitted++
		}
	}
	if admitted >= 5 {
		t.Errorf("full second burst admitted right after boundary: window is not sliding")
	}
}

func TestLimiter_RemainingNeverNegative(t *testing.T) {
	lim, _ := newTestLimiter(t, 2, 10*time.Second, false)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		decision, err := lim.Allow(ctx, NamespaceWrite, "1.2.3.4")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decision.Remaining < 0 {
			t.Fatalf("remaining went negative: %d", decision.Remaining)
		}
	}
}

// failingStore simulates a token store outage.
type failingStore struct{}

func (failingStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func (failingStore) Get(ctx context.Context, key string) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestLimiter_FailOpenFallsBackToLocalLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lim := NewLimiter(failingStore{}, NewFallback(ctx), nil, true)

	decision, err := lim.Allow(context.Background(), NamespaceWrite, "1.2.3.4")
	if err != nil {
		t.Fatalf("fail-open must not surface store errors, got %v", err)
	}
	if !decision.Admitted {
		t.Error("first request under fail-open should be admitted by fallback")
	}

	// The fallback still limits: burning through the write quota eventually
	// rejects, even with the store down.
	rejected := false
	for i := 0; i < 30; i++ {
		decision, _ = lim.Allow(context.Background(), NamespaceWrite, "1.2.3.4")
		if !decision.Admitted {
			rejected = true
			break
		}
	}
	if !rejected {
		t.Error("fallback limiter never rejected during store outage")
	}
}

func TestLimiter_FailClosedRejects(t *testing.T) {
	lim := NewLimiter(failingStore{}, nil, nil, false)

	decision, err := lim.Allow(context.Background(), NamespaceWrite, "1.2.3.4")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if decision.Admitted {
		t.Error("fail-closed must reject during store outage")
	}
	if decision.Limit == 0 {
		t.Error("decision should still carry the policy limit for headers")
	}
}

func TestLimiter_CancelledRequestSpendsQuota(t *testing.T) {
	lim, _ := newTestLimiter(t, 2, 10*time.Second, false)

	// A caller cancelled after the increment has already spent quota;
	// the counter is never rolled back (at-least-once accounting).
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 2; i++ {
		if _, err := lim.Allow(cancelled, NamespaceWrite, "1.2.3.4"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	decision, err := lim.Allow(context.Background(), NamespaceWrite, "1.2.3.4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Admitted {
		t.Error("quota spent by cancelled requests should still count")
	}
}

func TestLimiter_UnknownNamespaceUsesWriteDefault(t *testing.T) {
	lim := NewLimiter(NewMemoryStore(context.Background(), 0), nil, nil, false)

	policy := lim.Policy("no-such-namespace")
	if policy.Namespace != NamespaceWrite {
		t.Errorf("expected write policy as default, got %q", policy.Namespace)
	}
}

func TestDefaultPolicies(t *testing.T) {
	policies := DefaultPolicies()

	tests := []struct {
		namespace string
		quota     int
		window    time.Duration
	}{
		{NamespaceRead, 30, 10 * time.Second},
		{NamespaceWrite, 10, 10 * time.Second},
		{NamespaceAuth, 5, 60 * time.Second},
	}

	for _, tt := range tests {
		p, ok := policies[tt.namespace]
		if !ok {
			t.Fatalf("missing policy for %q", tt.namespace)
		}
		if p.Quota != tt.quota || p.Window != tt.window {
			t.Errorf("%s: expected %d/%s, got %d/%s", tt.namespace, tt.quota, tt.window, p.Quota, p.Window)
		}
	}
}
