package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "promptvault:lock:"

// releaseTimeout bounds the release round trip. Release never uses the
// caller's context: a cancelled request must still free its lease.
const releaseTimeout = 5 * time.Second

// Redis coordinates leases through SET NX PX and token-checked Lua renew and release.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis creates a Redis-backed lease manager. Keys are namespaced by
// prefix so several environments can share one Redis deployment.
func NewRedis(client redis.UniversalClient, prefix string) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}, nil
}

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("lease key cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	token, err := randomToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ok, err := r.client.SetNX(ctx, r.key(key), token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, ErrConflict
	}

	return &Lease{Key: key, Token: token, ExpiresAt: now.Add(ttl)}, nil
}

func (r *Redis) Renew(ctx context.Context, lease *Lease, ttl time.Duration) (*Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if lease == nil || strings.TrimSpace(lease.Key) == "" || strings.TrimSpace(lease.Token) == "" {
		return nil, fmt.Errorf("valid lease is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := time.Now().UTC()
	res, err := renewScript.Run(ctx, r.client, []string{r.key(lease.Key)}, lease.Token, ttl.Milliseconds()).Int()
	if err != nil {
		return nil, fmt.Errorf("renew lease %s: %w", lease.Key, err)
	}
	if res != 1 {
		return nil, ErrConflict
	}

	return &Lease{Key: lease.Key, Token: lease.Token, ExpiresAt: now.Add(ttl)}, nil
}

func (r *Redis) Release(_ context.Context, lease *Lease) error {
	if lease == nil || lease.Key == "" || lease.Token == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	if err := releaseScript.Run(ctx, r.client, []string{r.key(lease.Key)}, lease.Token).Err(); err != nil {
		return fmt.Errorf("release lease %s: %w", lease.Key, err)
	}
	return nil
}

func (r *Redis) Held(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("check lease %s: %w", key, err)
	}
	return n > 0, nil
}

func (r *Redis) key(key string) string {
	return r.prefix + key
}

func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate lease token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

var renewScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current == ARGV[1] then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
  return 1
end
return 0
`)

var releaseScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current == ARGV[1] then
  redis.call('DEL', KEYS[1])
  return 1
end
return 0
`)
