package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	pkgredis "github.com/mnhidayatgani/chatbot-sub000/pkg/redis"
)

// RedisWindowStore counts hits in an expiring key per customer. The
// first hit starts the window; expiry ends it.
type RedisWindowStore struct {
	client *pkgredis.Client
}

// NewRedisWindowStore builds a window store on the shared client.
func NewRedisWindowStore(client *pkgredis.Client) (*RedisWindowStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisWindowStore{client: client}, nil
}

// Hit increments the customer's window counter.
func (s *RedisWindowStore) Hit(ctx context.Context, customerID string, window time.Duration) (int64, time.Duration, error) {
	key := s.client.RateLimitKey(customerID)
	count, err := s.client.IncrWithTTL(ctx, key, window)
	if err != nil {
		return 0, 0, err
	}
	remaining, err := s.client.TTL(ctx, key)
	if err != nil || remaining < 0 {
		remaining = window
	}
	return count, remaining, nil
}

// Peek reads the customer's window without incrementing it.
func (s *RedisWindowStore) Peek(ctx context.Context, customerID string, window time.Duration) (int64, time.Duration, error) {
	key := s.client.RateLimitKey(customerID)
	raw, err := s.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse window counter: %w", err)
	}
	remaining, err := s.client.TTL(ctx, key)
	if err != nil || remaining < 0 {
		remaining = window
	}
	return count, remaining, nil
}

// Sweep deletes windows that lost their expiry. The first hit sets the
// TTL in a second step; if that step failed, the window would otherwise
// never reset.
func (s *RedisWindowStore) Sweep(ctx context.Context) (int, error) {
	keys, err := s.client.ScanKeys(ctx, s.client.RateLimitKey("*"))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, key := range keys {
		ttl, err := s.client.TTL(ctx, key)
		if err != nil {
			return removed, err
		}
		if ttl == -1 {
			if err := s.client.Del(ctx, key); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

// MemoryWindowStore is the in-process window store for tests and
// degraded operation. Expired windows linger until the next hit or a
// Sweep call.
type MemoryWindowStore struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

// NewMemoryWindowStore builds an empty in-memory window store.
func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

// Hit increments the customer's window counter.
func (s *MemoryWindowStore) Hit(_ context.Context, customerID string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[customerID]
	if !ok || !now.Before(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(window)}
		s.windows[customerID] = w
	}
	w.count++
	return w.count, w.resetAt.Sub(now), nil
}

// Peek reads the customer's window without incrementing it.
func (s *MemoryWindowStore) Peek(_ context.Context, customerID string, _ time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[customerID]
	if !ok || !now.Before(w.resetAt) {
		return 0, 0, nil
	}
	return w.count, w.resetAt.Sub(now), nil
}

// Sweep drops expired windows and returns how many were removed.
func (s *MemoryWindowStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for customerID, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, customerID)
			removed++
		}
	}
	return removed, nil
}
