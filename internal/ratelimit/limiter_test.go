package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mnhidayatgani/chatbot-sub000/pkg/config"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
)

type failingStore struct{}

func (failingStore) Hit(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("connection refused")
}

func (failingStore) Peek(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("connection refused")
}

func newTestLimiter(t *testing.T, store WindowStore, max int64) *Limiter {
	t.Helper()
	limiter, err := NewLimiter(LimiterParams{
		Store:  store,
		Logger: logger.New(logger.Options{ServiceName: "ratelimit-test"}),
		Config: config.RateLimitConfig{Window: time.Minute, MaxPerWindow: max},
	})
	if err != nil {
		t.Fatalf("construct limiter: %v", err)
	}
	return limiter
}

func TestTwentyFirstCallInWindowIsDenied(t *testing.T) {
	limiter := newTestLimiter(t, NewMemoryWindowStore(), 20)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		allowed, _, err := limiter.Allow(ctx, "cust-1")
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("call %d should be admitted", i+1)
		}
	}

	allowed, status, err := limiter.Allow(ctx, "cust-1")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if allowed {
		t.Fatalf("21st call should be denied")
	}
	if status.Remaining != 0 {
		t.Fatalf("expected zero remaining, got %d", status.Remaining)
	}
}

func TestWindowResetsAfterExpiry(t *testing.T) {
	store := NewMemoryWindowStore()
	current := time.Now()
	store.now = func() time.Time { return current }
	limiter := newTestLimiter(t, store, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if allowed, _, _ := limiter.Allow(ctx, "cust-1"); !allowed {
			t.Fatalf("call %d should be admitted", i+1)
		}
	}
	if allowed, _, _ := limiter.Allow(ctx, "cust-1"); allowed {
		t.Fatalf("over-cap call should be denied")
	}

	current = current.Add(2 * time.Minute)
	if allowed, _, _ := limiter.Allow(ctx, "cust-1"); !allowed {
		t.Fatalf("fresh window should admit again")
	}
}

func TestLimiterFailsOpenOnStoreError(t *testing.T) {
	limiter := newTestLimiter(t, failingStore{}, 1)
	allowed, _, err := limiter.Allow(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("store failure must not surface: %v", err)
	}
	if !allowed {
		t.Fatalf("store failure must fail open")
	}
}

func TestWindowsAreIndependentPerCustomer(t *testing.T) {
	limiter := newTestLimiter(t, NewMemoryWindowStore(), 1)
	ctx := context.Background()

	if allowed, _, _ := limiter.Allow(ctx, "cust-1"); !allowed {
		t.Fatalf("first call for cust-1 should pass")
	}
	if allowed, _, _ := limiter.Allow(ctx, "cust-1"); allowed {
		t.Fatalf("second call for cust-1 should be denied")
	}
	if allowed, _, _ := limiter.Allow(ctx, "cust-2"); !allowed {
		t.Fatalf("cust-2 has their own window")
	}
}

func TestStatusDoesNotConsumeQuota(t *testing.T) {
	limiter := newTestLimiter(t, NewMemoryWindowStore(), 2)
	ctx := context.Background()

	// However often status is read, the quota stays full.
	for i := 0; i < 5; i++ {
		status, err := limiter.Status(ctx, "cust-1")
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if status.Remaining != 2 {
			t.Fatalf("status read %d consumed quota: remaining %d", i, status.Remaining)
		}
	}

	for i := 0; i < 2; i++ {
		if allowed, _, _ := limiter.Allow(ctx, "cust-1"); !allowed {
			t.Fatalf("call %d should be admitted", i+1)
		}
	}
	status, err := limiter.Status(ctx, "cust-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Remaining != 0 {
		t.Fatalf("expected exhausted window, got %d remaining", status.Remaining)
	}
	if allowed, _, _ := limiter.Allow(ctx, "cust-1"); allowed {
		t.Fatalf("over-cap call should still be denied after status reads")
	}
}

func TestStatusFailsOpenOnStoreError(t *testing.T) {
	limiter := newTestLimiter(t, failingStore{}, 7)
	status, err := limiter.Status(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("store failure must not surface: %v", err)
	}
	if status.Remaining != 7 {
		t.Fatalf("expected full quota on store failure, got %d", status.Remaining)
	}
}

func TestMemoryStoreSweepEvictsExpiredWindows(t *testing.T) {
	store := NewMemoryWindowStore()
	current := time.Now()
	store.now = func() time.Time { return current }
	ctx := context.Background()

	if _, _, err := store.Hit(ctx, "cust-1", time.Minute); err != nil {
		t.Fatalf("hit: %v", err)
	}
	if _, _, err := store.Hit(ctx, "cust-2", time.Hour); err != nil {
		t.Fatalf("hit: %v", err)
	}

	current = current.Add(2 * time.Minute)
	removed, err := store.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one eviction, got %d", removed)
	}
}
