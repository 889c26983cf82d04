package stock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	redisclient "github.com/mnhidayatgani/chatbot-sub000/pkg/redis"
)

type stockRedisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	DecrIfEnough(ctx context.Context, key string, qty int64) (int64, bool, error)
	LPush(ctx context.Context, key string, values ...any) error
	LTrim(ctx context.Context, key string, start, stop int64) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	StockKey(productID string) string
	StockHistoryKey(productID string) string
}

// RedisCounterStore keeps stock counters under stock:<productId> as
// integer text, mutated only through redis atomic primitives.
type RedisCounterStore struct {
	client stockRedisStore
}

// NewRedisCounterStore builds the redis-backed counter store.
func NewRedisCounterStore(client *redisclient.Client) (*RedisCounterStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &RedisCounterStore{client: client}, nil
}

func (r *RedisCounterStore) Get(ctx context.Context, productID string) (int64, bool, error) {
	raw, err := r.client.Get(ctx, r.client.StockKey(productID))
	if err != nil {
		if errors.Is(err, redisclient.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get stock: %w", err)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse stock value %q: %w", raw, err)
	}
	return value, true, nil
}

func (r *RedisCounterStore) InitIfAbsent(ctx context.Context, productID string, baseline int64) (int64, error) {
	key := r.client.StockKey(productID)
	if _, err := r.client.SetNX(ctx, key, strconv.FormatInt(baseline, 10), 0); err != nil {
		return 0, fmt.Errorf("init stock: %w", err)
	}
	value, _, err := r.Get(ctx, productID)
	return value, err
}

func (r *RedisCounterStore) Set(ctx context.Context, productID string, value int64) error {
	return r.client.Set(ctx, r.client.StockKey(productID), strconv.FormatInt(value, 10), 0)
}

func (r *RedisCounterStore) IncrBy(ctx context.Context, productID string, qty int64) (int64, error) {
	return r.client.IncrBy(ctx, r.client.StockKey(productID), qty)
}

func (r *RedisCounterStore) DecrIfEnough(ctx context.Context, productID string, qty int64) (int64, bool, error) {
	return r.client.DecrIfEnough(ctx, r.client.StockKey(productID), qty)
}

// RedisHistoryStore keeps the audit ring under stock_history:<productId>
// as a JSON list, most-recent-first, capped at limit entries.
type RedisHistoryStore struct {
	client stockRedisStore
	limit  int64
}

// NewRedisHistoryStore builds the redis-backed history store.
func NewRedisHistoryStore(client *redisclient.Client, limit int64) (*RedisHistoryStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if limit <= 0 {
		limit = 20
	}
	return &RedisHistoryStore{client: client, limit: limit}, nil
}

func (r *RedisHistoryStore) Append(ctx context.Context, entry HistoryEntry) error {
	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	key := r.client.StockHistoryKey(entry.ProductID)
	if err := r.client.LPush(ctx, key, string(encoded)); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return r.client.LTrim(ctx, key, 0, r.limit-1)
}

func (r *RedisHistoryStore) List(ctx context.Context, productID string) ([]HistoryEntry, error) {
	raws, err := r.client.LRange(ctx, r.client.StockHistoryKey(productID), 0, r.limit-1)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	entries := make([]HistoryEntry, 0, len(raws))
	for _, raw := range raws {
		var entry HistoryEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
