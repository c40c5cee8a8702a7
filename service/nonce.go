package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

const nonceBytes = 32

// NonceExchange issues and consumes one-time login challenges
type NonceExchange struct {
	store   ports.Store
	realm   Realm
	product string
	ttl     time.Duration
	now     func() time.Time
}

// NewNonceExchange creates a nonce exchange over store
func NewNonceExchange(store ports.Store, realm Realm, product string, ttl time.Duration, now func() time.Time) *NonceExchange {
	return &NonceExchange{store: store, realm: realm, product: product, ttl: ttl, now: now}
}

// Generate issues a fresh nonce for address, replacing any live one
func (n *NonceExchange) Generate(ctx context.Context, address string) (core.Challenge, error) {
	address, err := core.NormalizeAddress(address)
	if err != nil {
		return core.Challenge{}, err
	}

	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return core.Challenge{}, fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(buf)

	if err := n.store.Set(ctx, n.realm.nonceKey(address), nonce, n.ttl); err != nil {
		return core.Challenge{}, fmt.Errorf("failed to store nonce: %w", err)
	}

	return core.Challenge{
		Address:   address,
		Nonce:     nonce,
		Message:   core.ChallengeMessage(n.product, address, nonce),
		ExpiresAt: n.now().Add(n.ttl),
	}, nil
}

// Consume atomically takes the live nonce for address and rebuilds its challenge.
// Whatever happens afterwards, the nonce cannot be used again.
func (n *NonceExchange) Consume(ctx context.Context, address string) (core.Challenge, error) {
	nonce, err := n.store.GetDelete(ctx, n.realm.nonceKey(address))
	if errors.Is(err, core.ErrNotFound) {
		return core.Challenge{}, core.ErrNonceExpiredOrMissing
	}
	if err != nil {
		return core.Challenge{}, fmt.Errorf("failed to consume nonce: %w", err)
	}

	return core.Challenge{
		Address: address,
		Nonce:   nonce,
		Message: core.ChallengeMessage(n.product, address, nonce),
	}, nil
}
