package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFixture struct {
	store   ports.Store
	advance func(time.Duration)
}

func newFixtures(t *testing.T) map[string]storeFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var mu sync.Mutex
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mem := NewMemoryStore().WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})

	return map[string]storeFixture{
		"redis": {
			store:   NewRedisStore(client, WithPrefix("test:")),
			advance: mr.FastForward,
		},
		"memory": {
			store: mem,
			advance: func(d time.Duration) {
				mu.Lock()
				defer mu.Unlock()
				now = now.Add(d)
			},
		},
	}
}

func TestStore_SetGetDelete(t *testing.T) {
	for name, f := range newFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := f.store.Get(ctx, "missing")
			assert.ErrorIs(t, err, core.ErrNotFound)

			require.NoError(t, f.store.Set(ctx, "k", "v", time.Minute))
			value, err := f.store.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "v", value)

			exists, err := f.store.Exists(ctx, "k")
			require.NoError(t, err)
			assert.True(t, exists)

			require.NoError(t, f.store.Delete(ctx, "k"))
			require.NoError(t, f.store.Delete(ctx, "k"))
			exists, err = f.store.Exists(ctx, "k")
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestStore_TTL(t *testing.T) {
	for name, f := range newFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, f.store.Set(ctx, "nonce", "n1", 5*time.Minute))

			f.advance(4 * time.Minute)
			_, err := f.store.Get(ctx, "nonce")
			require.NoError(t, err)

			f.advance(2 * time.Minute)
			_, err = f.store.Get(ctx, "nonce")
			assert.ErrorIs(t, err, core.ErrNotFound)
		})
	}
}

func TestStore_GetDelete(t *testing.T) {
	for name, f := range newFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, f.store.Set(ctx, "nonce", "n1", time.Minute))

			value, err := f.store.GetDelete(ctx, "nonce")
			require.NoError(t, err)
			assert.Equal(t, "n1", value)

			_, err = f.store.GetDelete(ctx, "nonce")
			assert.ErrorIs(t, err, core.ErrNotFound)
		})
	}
}

func TestStore_CompareAndSwap(t *testing.T) {
	for name, f := range newFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			swapped, err := f.store.CompareAndSwap(ctx, "family", "a", "b", time.Hour)
			require.NoError(t, err)
			assert.False(t, swapped, "absent key must not be swapped")

			require.NoError(t, f.store.Set(ctx, "family", "a", time.Minute))

			swapped, err = f.store.CompareAndSwap(ctx, "family", "x", "b", time.Hour)
			require.NoError(t, err)
			assert.False(t, swapped)

			swapped, err = f.store.CompareAndSwap(ctx, "family", "a", "b", time.Hour)
			require.NoError(t, err)
			assert.True(t, swapped)

			value, err := f.store.Get(ctx, "family")
			require.NoError(t, err)
			assert.Equal(t, "b", value)

			// The swap renews the TTL to the new value
			f.advance(30 * time.Minute)
			_, err = f.store.Get(ctx, "family")
			assert.NoError(t, err)
		})
	}
}

func TestStore_ConcurrentGetDeleteSingleWinner(t *testing.T) {
	for name, f := range newFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, f.store.Set(ctx, "nonce", "n1", time.Minute))

			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := f.store.GetDelete(ctx, "nonce"); err == nil {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), wins.Load())
		})
	}
}

func TestStore_ConcurrentCompareAndSwapSingleWinner(t *testing.T) {
	for name, f := range newFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, f.store.Set(ctx, "family", "old", time.Hour))

			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					swapped, err := f.store.CompareAndSwap(ctx, "family", "old", "new", time.Hour)
					if err == nil && swapped {
						wins.Add(1)
					}
				}(i)
			}
			wg.Wait()
			assert.Equal(t, int32(1), wins.Load())
		})
	}
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	s := NewRedisStore(client, WithTimeout(200*time.Millisecond))

	mr.Close()

	_, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.True(t, core.IsTransient(err))
	assert.ErrorIs(t, s.Ping(context.Background()), core.ErrStoreUnavailable)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := NewRedisStore(client, WithPrefix("svc:"))

	require.NoError(t, s.Set(context.Background(), "family:f1", "jti", time.Minute))
	value, err := mr.Get("svc:family:f1")
	require.NoError(t, err)
	assert.Equal(t, "jti", value)
}
