package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	pkgredis "github.com/mnhidayatgani/chatbot-sub000/pkg/redis"
)

// MarkerStore tracks which reminder stages have already fired for an
// order. TrySet claims a stage exactly once; ClearOrder drops every
// marker when the order resolves.
type MarkerStore interface {
	TrySet(ctx context.Context, orderID string, stage int, ttl time.Duration) (bool, error)
	ClearOrder(ctx context.Context, orderID string) error
}

// RedisMarkerStore keeps markers as expiring keys so stale orders clean
// themselves up even if ClearOrder is never called.
type RedisMarkerStore struct {
	client *pkgredis.Client
}

// NewRedisMarkerStore builds a marker store on the shared client.
func NewRedisMarkerStore(client *pkgredis.Client) (*RedisMarkerStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisMarkerStore{client: client}, nil
}

// TrySet claims the marker. Returns false when another sweep already did.
func (s *RedisMarkerStore) TrySet(ctx context.Context, orderID string, stage int, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.client.ReminderKey(orderID, stage), "1", ttl)
}

// ClearOrder removes every marker for the order.
func (s *RedisMarkerStore) ClearOrder(ctx context.Context, orderID string) error {
	keys, err := s.client.ScanKeys(ctx, s.client.ReminderKeyPattern(orderID))
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...)
}

// MemoryMarkerStore is the in-process equivalent, used for tests and
// degraded operation.
type MemoryMarkerStore struct {
	mu      sync.Mutex
	markers map[string]time.Time
	now     func() time.Time
}

// NewMemoryMarkerStore builds an empty in-memory marker store.
func NewMemoryMarkerStore() *MemoryMarkerStore {
	return &MemoryMarkerStore{
		markers: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryMarkerStore) key(orderID string, stage int) string {
	return fmt.Sprintf("%s:stage%d", orderID, stage)
}

// TrySet claims the marker unless a live one already exists.
func (s *MemoryMarkerStore) TrySet(_ context.Context, orderID string, stage int, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.key(orderID, stage)
	if expires, ok := s.markers[key]; ok && s.now().Before(expires) {
		return false, nil
	}
	s.markers[key] = s.now().Add(ttl)
	return true, nil
}

// ClearOrder removes every marker for the order.
func (s *MemoryMarkerStore) ClearOrder(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := orderID + ":stage"
	for key := range s.markers {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(s.markers, key)
		}
	}
	return nil
}
