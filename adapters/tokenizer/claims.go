package tokenizer

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/walletauth/core"
)

// SessionClaims is the claim set of both access and refresh tokens:
// sub, walletAddress, role, familyId, jti, iat, exp
type SessionClaims struct {
	jwt.RegisteredClaims
	WalletAddress string `json:"walletAddress"`
	Role          string `json:"role"`
	FamilyID      string `json:"familyId"`
}

func newSessionClaims(c *core.Claims) SessionClaims {
	return SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Subject,
			ID:        c.TokenID,
			IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
		},
		WalletAddress: c.Address,
		Role:          string(c.Role),
		FamilyID:      c.FamilyID,
	}
}

func (s *SessionClaims) toCore() *core.Claims {
	c := &core.Claims{
		Subject:  s.Subject,
		Address:  s.WalletAddress,
		Role:     core.Role(s.Role),
		FamilyID: s.FamilyID,
		TokenID:  s.ID,
	}
	if s.IssuedAt != nil {
		c.IssuedAt = s.IssuedAt.Time
	}
	if s.ExpiresAt != nil {
		c.ExpiresAt = s.ExpiresAt.Time
	}
	return c
}
