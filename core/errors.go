package core

import "errors"

// Login failures. Each one requires a fresh nonce to retry.
var (
	ErrNonceExpiredOrMissing    = errors.New("nonce expired or missing")
	ErrSignatureUnparseable     = errors.New("signature cannot be parsed")
	ErrSignatureAddressMismatch = errors.New("signature does not match wallet address")
)

// Refresh failures. Each one requires full re-authentication.
var (
	ErrRefreshTokenInvalid   = errors.New("refresh token is invalid or expired")
	ErrRefreshTokenMalformed = errors.New("refresh token is missing required claims")
	ErrRefreshTokenRevoked   = errors.New("refresh token has been revoked")
	ErrFamilyInvalid         = errors.New("token family is no longer valid")

	// ErrReuseDetected is a security event: a rotated-away refresh token was presented again
	ErrReuseDetected = errors.New("refresh token reuse detected")

	// ErrFamilyHeadMoved is returned by the issuer when a rotation loses its compare-and-swap
	ErrFamilyHeadMoved = errors.New("family head moved during rotation")
)

// Guard and directory failures
var (
	ErrAccessTokenInvalid = errors.New("access token is invalid or expired")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrInsufficientRole   = errors.New("role is not permitted in this realm")
	ErrUserInactive       = errors.New("user is missing or inactive")
	ErrUserNotFound       = errors.New("user not found")
)

// ErrInvalidAddress is a request validation error, not an authentication failure
var ErrInvalidAddress = errors.New("invalid wallet address")

// ErrNotFound is returned by stores for absent keys
var ErrNotFound = errors.New("key not found")

// Transient infrastructure failures. Callers may retry these without re-authenticating.
var (
	ErrStoreUnavailable     = errors.New("key-value store unavailable")
	ErrDirectoryUnavailable = errors.New("user directory unavailable")
)

// IsTransient reports whether err is an infrastructure failure rather than a protocol failure
func IsTransient(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrDirectoryUnavailable)
}
