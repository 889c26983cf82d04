package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisclient "github.com/mnhidayatgani/chatbot-sub000/pkg/redis"
)

// redisStore is the slice of the redis client this package needs.
type redisStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
	Ping(ctx context.Context) error
	SessionKey(customerID string) string
	SessionKeyPattern() string
}

// RedisStorage persists sessions under session:<customerId> with a TTL
// refreshed on every read and write.
type RedisStorage struct {
	client redisStore
	ttl    time.Duration
}

// NewRedisStorage builds the redis-backed session storage.
func NewRedisStorage(client *redisclient.Client, ttl time.Duration) (*RedisStorage, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &RedisStorage{client: client, ttl: ttl}, nil
}

func (r *RedisStorage) Get(ctx context.Context, customerID string) (*Session, error) {
	key := r.client.SessionKey(customerID)
	raw, err := r.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redisclient.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	if err := r.client.Expire(ctx, key, r.ttl); err != nil {
		return nil, fmt.Errorf("refresh session ttl: %w", err)
	}
	return &sess, nil
}

func (r *RedisStorage) Put(ctx context.Context, sess *Session) error {
	if sess == nil || sess.CustomerID == "" {
		return errors.New("session with customer id is required")
	}
	encoded, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.client.SessionKey(sess.CustomerID), string(encoded), r.ttl); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (r *RedisStorage) Delete(ctx context.Context, customerID string) error {
	return r.client.Del(ctx, r.client.SessionKey(customerID))
}

func (r *RedisStorage) List(ctx context.Context) ([]*Session, error) {
	keys, err := r.client.ScanKeys(ctx, r.client.SessionKeyPattern())
	if err != nil {
		return nil, err
	}
	sessions := make([]*Session, 0, len(keys))
	for _, key := range keys {
		raw, err := r.client.Get(ctx, key)
		if err != nil {
			if errors.Is(err, redisclient.Nil) {
				continue
			}
			return nil, fmt.Errorf("list session %s: %w", key, err)
		}
		var sess Session
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			// A corrupt record shouldn't break a sweep over everyone else.
			continue
		}
		sessions = append(sessions, &sess)
	}
	return sessions, nil
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}
