package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
	"github.com/redis/go-redis/v9"
)

// DefaultTimeout bounds every store round trip
const DefaultTimeout = 2 * time.Second

// compareAndSwap replaces KEYS[1] with ARGV[2] (PX ARGV[3]) only when it still holds ARGV[1]
var compareAndSwap = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`)

// RedisStore is a Redis implementation of the Store interface
type RedisStore struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
}

// RedisOption configures a RedisStore
type RedisOption func(*RedisStore)

// WithPrefix namespaces every key written by the store
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// WithTimeout overrides the per-operation timeout
func WithTimeout(timeout time.Duration) RedisOption {
	return func(s *RedisStore) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) ports.Store {
	s := &RedisStore{
		client:  client,
		prefix:  "walletauth:",
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves a value by key
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", unavailable("get", err)
	}
	return value, nil
}

// Set stores a key with a value and expiration time
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return unavailable("set", err)
	}
	return nil
}

// Delete removes a key
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return unavailable("delete", err)
	}
	return nil
}

// GetDelete atomically reads and removes a key (GETDEL, Redis >= 6.2)
func (s *RedisStore) GetDelete(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	value, err := s.client.GetDel(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", unavailable("getdel", err)
	}
	return value, nil
}

// CompareAndSwap runs the swap as a single Lua script so no other client can interleave
func (s *RedisStore) CompareAndSwap(ctx context.Context, key, expected, next string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	swapped, err := compareAndSwap.Run(ctx, s.client, []string{s.prefix + key}, expected, next, max(ttl.Milliseconds(), 1)).Int()
	if err != nil {
		return false, unavailable("compare-and-swap", err)
	}
	return swapped == 1, nil
}

// Exists checks if a key is present
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.client.Exists(ctx, s.prefix+key).Result()
	if err != nil {
		return false, unavailable("exists", err)
	}
	return n > 0, nil
}

// Ping checks the connection
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("redis %s: %w: %v", op, core.ErrStoreUnavailable, err)
}
