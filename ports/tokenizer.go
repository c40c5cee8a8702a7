package ports

import "github.com/layer-3/walletauth/core"

// Tokenizer converts between claims and signed tokens.
// Access and refresh tokens are signed with different secrets.
type Tokenizer interface {
	ClaimsToAccessToken(claims *core.Claims) (string, error)
	AccessTokenToClaims(token string) (*core.Claims, error)

	ClaimsToRefreshToken(claims *core.Claims) (string, error)
	RefreshTokenToClaims(token string) (*core.Claims, error)

	// DecodeRefreshToken verifies the refresh signature but tolerates expiry
	DecodeRefreshToken(token string) (*core.Claims, error)
}
