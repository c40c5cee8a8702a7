package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// TokenIssuer mints access/refresh pairs and is the only component that moves a family head
type TokenIssuer struct {
	tokenizer  ports.Tokenizer
	ledger     *RevocationLedger
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer creates a token issuer
func NewTokenIssuer(tokenizer ports.Tokenizer, ledger *RevocationLedger, accessTTL, refreshTTL time.Duration, now func() time.Time) *TokenIssuer {
	return &TokenIssuer{
		tokenizer:  tokenizer,
		ledger:     ledger,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
	}
}

// Issue signs a new pair for user in familyID and points the family head at the new refresh jti.
// With an empty previousJTI the head is written unconditionally (login); otherwise the head is
// swapped from previousJTI and core.ErrFamilyHeadMoved is returned if another request got there first.
func (i *TokenIssuer) Issue(ctx context.Context, user *core.User, familyID, previousJTI string) (core.TokenPair, error) {
	now := i.now()
	base := core.Claims{
		Subject:  user.ID,
		Address:  user.Address,
		Role:     user.Role,
		FamilyID: familyID,
		IssuedAt: now,
	}

	access := base
	access.TokenID = uuid.NewString()
	access.ExpiresAt = now.Add(i.accessTTL)

	refresh := base
	refresh.TokenID = uuid.NewString()
	refresh.ExpiresAt = now.Add(i.refreshTTL)

	accessToken, err := i.tokenizer.ClaimsToAccessToken(&access)
	if err != nil {
		return core.TokenPair{}, fmt.Errorf("failed to create access token: %w", err)
	}
	refreshToken, err := i.tokenizer.ClaimsToRefreshToken(&refresh)
	if err != nil {
		return core.TokenPair{}, fmt.Errorf("failed to create refresh token: %w", err)
	}

	if previousJTI == "" {
		if err := i.ledger.StartFamily(ctx, familyID, refresh.TokenID, i.refreshTTL); err != nil {
			return core.TokenPair{}, err
		}
	} else {
		swapped, err := i.ledger.AdvanceFamily(ctx, familyID, previousJTI, refresh.TokenID, i.refreshTTL)
		if err != nil {
			return core.TokenPair{}, err
		}
		if !swapped {
			return core.TokenPair{}, core.ErrFamilyHeadMoved
		}
	}

	return core.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Access:       access,
		Refresh:      refresh,
	}, nil
}
