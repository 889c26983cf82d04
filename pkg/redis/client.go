package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mnhidayatgani/chatbot-sub000/pkg/config"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	sessionPrefix      = "session"
	stockPrefix        = "stock"
	stockHistoryPrefix = "stock_history"
	rateLimitPrefix    = "rate_limit"
	reminderPrefix     = "reminder"
	invoicePrefix      = "invoice"
	lockPrefix         = "lock"
)

// Nil is re-exported so callers can test for missing keys without importing go-redis.
var Nil = redis.Nil

// decrIfEnough atomically decrements a counter only when the current value
// covers the requested quantity. Returns the new value, or -1 when the
// counter would go negative, or -2 when the key does not exist.
var decrIfEnough = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current == false then
  return -2
end
if tonumber(current) < tonumber(ARGV[1]) then
  return -1
end
return redis.call('DECRBY', KEYS[1], ARGV[1])
`)

// Client wraps the redis connection helpers needed by the storefront.
type Client struct {
	raw *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// New bootstraps a Redis client with pooling/timeouts and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Set stores a string value with an optional TTL.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.raw == nil {
		return errors.New("redis client not initialized")
	}
	return c.raw.Set(ctx, key, value, ttl).Err()
}

// Get returns a string value stored at key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.raw == nil {
		return "", errors.New("redis client not initialized")
	}
	return c.raw.Get(ctx, key).Result()
}

// SetNX sets a value only if the key does not exist yet.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.raw == nil {
		return false, errors.New("redis client not initialized")
	}
	return c.raw.SetNX(ctx, key, value, ttl).Result()
}

// Del removes the provided keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.raw == nil {
		return errors.New("redis client not initialized")
	}
	return c.raw.Del(ctx, keys...).Err()
}

// Expire refreshes the TTL of an existing key.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if c.raw == nil {
		return errors.New("redis client not initialized")
	}
	return c.raw.Expire(ctx, key, ttl).Err()
}

// TTL returns the remaining lifetime of a key.
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	if c.raw == nil {
		return 0, errors.New("redis client not initialized")
	}
	return c.raw.TTL(ctx, key).Result()
}

// Incr increments the counter stored at key.
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	if c.raw == nil {
		return 0, errors.New("redis client not initialized")
	}
	return c.raw.Incr(ctx, key).Result()
}

// IncrWithTTL increments and ensures the key has the supplied TTL on the first increment.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := c.Incr(ctx, key)
	if err != nil {
		return 0, err
	}
	if ttl > 0 && count == 1 {
		if expErr := c.raw.Expire(ctx, key, ttl).Err(); expErr != nil {
			return count, expErr
		}
	}
	return count, nil
}

// IncrBy adds delta to the counter stored at key.
func (c *Client) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	if c.raw == nil {
		return 0, errors.New("redis client not initialized")
	}
	return c.raw.IncrBy(ctx, key, delta).Result()
}

// DecrIfEnough atomically decrements key by qty only when the stored value
// covers it. Returns (newValue, true) on success and (current semantics
// aside) (0, false) when the counter is missing or would go negative.
func (c *Client) DecrIfEnough(ctx context.Context, key string, qty int64) (int64, bool, error) {
	if c.raw == nil {
		return 0, false, errors.New("redis client not initialized")
	}
	result, err := decrIfEnough.Run(ctx, c.raw, []string{key}, qty).Int64()
	if err != nil {
		return 0, false, fmt.Errorf("decr script: %w", err)
	}
	if result < 0 {
		return 0, false, nil
	}
	return result, true, nil
}

// LPush prepends values to the list at key.
func (c *Client) LPush(ctx context.Context, key string, values ...any) error {
	if c.raw == nil {
		return errors.New("redis client not initialized")
	}
	return c.raw.LPush(ctx, key, values...).Err()
}

// LTrim caps the list at key to the given inclusive range.
func (c *Client) LTrim(ctx context.Context, key string, start, stop int64) error {
	if c.raw == nil {
		return errors.New("redis client not initialized")
	}
	return c.raw.LTrim(ctx, key, start, stop).Err()
}

// LRange returns the list slice between start and stop.
func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if c.raw == nil {
		return nil, errors.New("redis client not initialized")
	}
	return c.raw.LRange(ctx, key, start, stop).Result()
}

// ScanKeys collects every key matching the pattern. Intended for small
// keyspaces (session sweeps); not a general-purpose scan.
func (c *Client) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	if c.raw == nil {
		return nil, errors.New("redis client not initialized")
	}
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := c.raw.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan %q: %w", pattern, err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

// SessionKey returns the namespaced key for a customer session.
func (c *Client) SessionKey(customerID string) string {
	return c.buildKey(sessionPrefix, customerID)
}

// SessionKeyPattern matches every stored session.
func (c *Client) SessionKeyPattern() string {
	return c.buildKey(sessionPrefix, "*")
}

// StockKey returns the namespaced key for a product stock counter.
func (c *Client) StockKey(productID string) string {
	return c.buildKey(stockPrefix, productID)
}

// StockHistoryKey returns the namespaced key for a product audit list.
func (c *Client) StockHistoryKey(productID string) string {
	return c.buildKey(stockHistoryPrefix, productID)
}

// RateLimitKey returns the namespaced key for a customer rate window.
func (c *Client) RateLimitKey(customerID string) string {
	return c.buildKey(rateLimitPrefix, customerID)
}

// ReminderKey returns the namespaced dedupe marker for an order/stage pair.
func (c *Client) ReminderKey(orderID string, stage int) string {
	return c.buildKey(reminderPrefix, orderID, fmt.Sprintf("stage%d", stage))
}

// ReminderKeyPattern matches every reminder marker for an order.
func (c *Client) ReminderKeyPattern(orderID string) string {
	return c.buildKey(reminderPrefix, orderID, "*")
}

// InvoiceKey returns the namespaced invoice-to-customer index key.
func (c *Client) InvoiceKey(invoiceID string) string {
	return c.buildKey(invoicePrefix, invoiceID)
}

// LockKey returns the namespaced key for a named lock.
func (c *Client) LockKey(name string) string {
	return c.buildKey(lockPrefix, name)
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.raw == nil {
		return errors.New("redis client not initialized")
	}
	return c.raw.Ping(ctx).Err()
}

// Close shuts down the underlying client if available.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func (c *Client) buildKey(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		clean = append(clean, strings.TrimSpace(part))
	}
	return strings.Join(clean, ":")
}
