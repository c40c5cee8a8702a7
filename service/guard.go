package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// Guard decides whether a presented access token may use a protected route.
// One Guard exists per realm; its tokenizer carries the realm's secret.
type Guard struct {
	realm     Realm
	tokenizer ports.Tokenizer
	ledger    *RevocationLedger
	users     ports.UserDirectory
}

// NewGuard creates a guard for realm
func NewGuard(realm Realm, tokenizer ports.Tokenizer, ledger *RevocationLedger, users ports.UserDirectory) *Guard {
	return &Guard{realm: realm, tokenizer: tokenizer, ledger: ledger, users: users}
}

// Authenticate verifies the token, its revocation status, the realm's role set and the user's standing
func (g *Guard) Authenticate(ctx context.Context, accessToken string) (*core.Principal, error) {
	claims, err := g.tokenizer.AccessTokenToClaims(accessToken)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.TokenID == "" {
		return nil, core.ErrAccessTokenInvalid
	}

	revoked, err := g.ledger.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, core.ErrTokenRevoked
	}

	if !g.realm.Permits(claims.Role) {
		return nil, core.ErrInsufficientRole
	}

	user, err := g.users.FindByID(ctx, claims.Subject)
	if errors.Is(err, core.ErrUserNotFound) {
		return nil, core.ErrUserInactive
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.Active {
		return nil, core.ErrUserInactive
	}

	return &core.Principal{User: user, Claims: *claims}, nil
}
