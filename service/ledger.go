package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

const revokedMarker = "1"

// RevocationLedger tracks revoked token ids and the head of every token family
type RevocationLedger struct {
	store ports.Store
	realm Realm
	now   func() time.Time
}

// NewRevocationLedger creates a ledger over store in the realm's key namespace
func NewRevocationLedger(store ports.Store, realm Realm, now func() time.Time) *RevocationLedger {
	return &RevocationLedger{store: store, realm: realm, now: now}
}

// Revoke blacklists jti for ttl. A non-positive ttl is a no-op: the token is already dead.
func (l *RevocationLedger) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := l.store.Set(ctx, l.realm.blacklistKey(jti), revokedMarker, ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// RevokeUntil blacklists jti for the rest of its natural lifetime
func (l *RevocationLedger) RevokeUntil(ctx context.Context, jti string, expiresAt time.Time) error {
	return l.Revoke(ctx, jti, expiresAt.Sub(l.now()))
}

// IsRevoked checks whether jti is blacklisted
func (l *RevocationLedger) IsRevoked(ctx context.Context, jti string) (bool, error) {
	revoked, err := l.store.Exists(ctx, l.realm.blacklistKey(jti))
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return revoked, nil
}

// FamilyHead returns the jti of the family's current refresh token and whether the family exists
func (l *RevocationLedger) FamilyHead(ctx context.Context, familyID string) (string, bool, error) {
	head, err := l.store.Get(ctx, l.realm.familyKey(familyID))
	if errors.Is(err, core.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read family head: %w", err)
	}
	return head, true, nil
}

// StartFamily points a new family at its first refresh token
func (l *RevocationLedger) StartFamily(ctx context.Context, familyID, jti string, ttl time.Duration) error {
	if err := l.store.Set(ctx, l.realm.familyKey(familyID), jti, ttl); err != nil {
		return fmt.Errorf("failed to write family head: %w", err)
	}
	return nil
}

// AdvanceFamily moves the head from previous to next only if no one else moved it first
func (l *RevocationLedger) AdvanceFamily(ctx context.Context, familyID, previous, next string, ttl time.Duration) (bool, error) {
	swapped, err := l.store.CompareAndSwap(ctx, l.realm.familyKey(familyID), previous, next, ttl)
	if err != nil {
		return false, fmt.Errorf("failed to advance family head: %w", err)
	}
	return swapped, nil
}

// RevokeFamily deletes the family head, orphaning every refresh token ever issued under it
func (l *RevocationLedger) RevokeFamily(ctx context.Context, familyID string) error {
	if err := l.store.Delete(ctx, l.realm.familyKey(familyID)); err != nil {
		return fmt.Errorf("failed to revoke family: %w", err)
	}
	return nil
}
