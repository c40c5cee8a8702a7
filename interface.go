// Package walletauth is a Go client for the walletauth HTTP API.
package walletauth

import "context"

// Client represents the public interface for interacting with the session service
type Client interface {
	// Challenge requests a login nonce and the message to sign for address
	Challenge(ctx context.Context, address string) (Challenge, error)

	// Login runs the whole nonce exchange with signer and returns the first token pair
	Login(ctx context.Context, signer Signer) (Tokens, error)

	// Refresh rotates the refresh token and returns new tokens
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)

	// Logout revokes the access token and, when given, the refresh token's family
	Logout(ctx context.Context, accessToken, refreshToken string) error

	// Me returns the identity behind an access token
	Me(ctx context.Context, accessToken string) (Identity, error)
}

// Signer signs challenge messages with a wallet key (EIP-191 personal_sign)
type Signer interface {
	Address() string
	SignText(message string) (string, error)
}

// Challenge is an issued login nonce
type Challenge struct {
	Nonce   string `json:"nonce"`
	Message string `json:"message"`
}

// Tokens is an access and refresh token pair
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Identity describes the authenticated user
type Identity struct {
	UserID        string `json:"userId"`
	WalletAddress string `json:"walletAddress"`
	Role          string `json:"role"`
}
