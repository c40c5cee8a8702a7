package ports

import (
	"context"
	"time"
)

// Store is the key-value store holding nonces, family heads and revocation markers.
// Implementations return core.ErrNotFound for absent keys and wrap infrastructure
// failures in core.ErrStoreUnavailable.
type Store interface {
	// Get returns the value stored under key
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key for ttl
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// GetDelete atomically returns and removes the value under key
	GetDelete(ctx context.Context, key string) (string, error)

	// CompareAndSwap replaces the value under key with next only if it currently equals
	// expected, resetting the ttl. It reports whether the swap happened.
	CompareAndSwap(ctx context.Context, key, expected, next string, ttl time.Duration) (bool, error)

	// Exists reports whether key is present
	Exists(ctx context.Context, key string) (bool, error)

	// Ping checks connectivity
	Ping(ctx context.Context) error
}
