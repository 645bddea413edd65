// Package cache provides a Redis-backed read-through cache whose entries
// are grouped under index keys so a whole group can be dropped at once.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/promptvault/pkg/lifecycle"
)

// System manages the Redis connection and grouped cache entries.
type System interface {
	// Client exposes the underlying connection for subsystems that share it.
	Client() redis.UniversalClient
	// Start registers the connectivity check and close hooks.
	Start(lc *lifecycle.Coordinator) error
	// Get returns the cached value at key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Generation returns how many times index has been invalidated.
	Generation(ctx context.Context, index string) (int64, error)
	// Set stores value at key and records key under index, unless index was
	// invalidated after gen was read. It reports whether the value was stored.
	// A zero ttl uses the configured default.
	Set(ctx context.Context, index, key string, gen int64, value []byte, ttl time.Duration) (bool, error)
	// Invalidate deletes every entry recorded under index and the index itself,
	// and advances the index generation. It returns the number of recorded entries.
	Invalidate(ctx context.Context, index string) (int, error)
}

type redisCache struct {
	client      redis.UniversalClient
	prefix      string
	ttl         time.Duration
	dialTimeout time.Duration
	logger      *slog.Logger
}

// New creates a cache system from configuration. The connection is not
// verified until Start runs.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, fmt.Errorf("redis options: %w", err)
	}

	return &redisCache{
		client:      redis.NewClient(opts),
		prefix:      cfg.Prefix,
		ttl:         cfg.TTLDuration(),
		dialTimeout: cfg.DialTimeoutDuration(),
		logger:      logger.With("system", "cache"),
	}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client redis.UniversalClient, prefix string, ttl time.Duration, logger *slog.Logger) System {
	return &redisCache{
		client:      client,
		prefix:      prefix,
		ttl:         ttl,
		dialTimeout: 5 * time.Second,
		logger:      logger.With("system", "cache"),
	}
}

func (c *redisCache) Client() redis.UniversalClient {
	return c.client
}

func (c *redisCache) Start(lc *lifecycle.Coordinator) error {
	c.logger.Info("starting cache connection")

	lc.OnStartup(func() error {
		pingCtx, cancel := context.WithTimeout(lc.Context(), c.dialTimeout)
		defer cancel()

		if err := c.client.Ping(pingCtx).Err(); err != nil {
			c.logger.Error("cache ping failed", "error", err)
			return fmt.Errorf("cache ping: %w", err)
		}

		c.logger.Info("cache connection established")
		return nil
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		c.logger.Info("closing cache connection")

		if err := c.client.Close(); err != nil {
			c.logger.Error("cache close failed", "error", err)
			return
		}

		c.logger.Info("cache connection closed")
	})

	return nil
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return data, true, nil
}

func (c *redisCache) Generation(ctx context.Context, index string) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey(index)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache generation %s: %w", index, err)
	}
	return gen, nil
}

func (c *redisCache) Set(ctx context.Context, index, key string, gen int64, value []byte, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	keys := []string{c.prefix + index, c.prefix + key, c.generationKey(index)}
	stored, err := setScript.Run(ctx, c.client, keys, strconv.FormatInt(gen, 10), value, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("cache set %s: %w", key, err)
	}
	return stored == 1, nil
}

func (c *redisCache) Invalidate(ctx context.Context, index string) (int, error) {
	n, err := invalidateScript.Run(ctx, c.client, []string{c.prefix + index, c.generationKey(index)}).Int()
	if err != nil {
		return 0, fmt.Errorf("cache invalidate %s: %w", index, err)
	}
	return n, nil
}

// The generation key carries no TTL. Expiring it would reset the count and
// let a write that read the old value pass the check.
func (c *redisCache) generationKey(index string) string {
	return c.prefix + index + ":gen"
}

// Entry deletion, index removal, and the generation bump run as one script so
// a concurrent Set either lands before it and is deleted, or sees the new
// generation and is refused.
var invalidateScript = redis.NewScript(`
local keys = redis.call('SMEMBERS', KEYS[1])
for i = 1, #keys do
  redis.call('DEL', keys[i])
end
redis.call('DEL', KEYS[1])
redis.call('INCR', KEYS[2])
return #keys
`)

var setScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[3]) or '0'
if gen ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
redis.call('SADD', KEYS[1], KEYS[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)
