package tokenizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// ErrWeakSecret is returned when a realm is configured with an empty or shared secret
var ErrWeakSecret = errors.New("access and refresh secrets must be non-empty and distinct")

// ClockSkew is the clock drift tolerated between instances when checking iat and exp
const ClockSkew = 5 * time.Second

// JWTTokenizer implements the Tokenizer interface using HMAC-signed JWTs.
// Access and refresh tokens use separate secrets so one class can never be replayed as the other.
type JWTTokenizer struct {
	accessSecret  []byte
	refreshSecret []byte
	now           func() time.Time
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(accessSecret, refreshSecret string) (*JWTTokenizer, error) {
	if accessSecret == "" || refreshSecret == "" || accessSecret == refreshSecret {
		return nil, ErrWeakSecret
	}
	return &JWTTokenizer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		now:           time.Now,
	}, nil
}

// WithClock replaces the time source used to validate expiry
func (j *JWTTokenizer) WithClock(now func() time.Time) *JWTTokenizer {
	j.now = now
	return j
}

var _ ports.Tokenizer = (*JWTTokenizer)(nil)

// ClaimsToAccessToken signs an access token
func (j *JWTTokenizer) ClaimsToAccessToken(claims *core.Claims) (string, error) {
	signed, err := sign(claims, j.accessSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// ClaimsToRefreshToken signs a refresh token
func (j *JWTTokenizer) ClaimsToRefreshToken(claims *core.Claims) (string, error) {
	signed, err := sign(claims, j.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, nil
}

// AccessTokenToClaims verifies an access token's signature and expiry
func (j *JWTTokenizer) AccessTokenToClaims(tokenStr string) (*core.Claims, error) {
	claims, err := j.parse(tokenStr, j.accessSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w: %v", core.ErrAccessTokenInvalid, err)
	}
	return claims, nil
}

// RefreshTokenToClaims verifies a refresh token's signature and expiry
func (j *JWTTokenizer) RefreshTokenToClaims(tokenStr string) (*core.Claims, error) {
	claims, err := j.parse(tokenStr, j.refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to parse refresh token: %w: %v", core.ErrRefreshTokenInvalid, err)
	}
	return claims, nil
}

// DecodeRefreshToken verifies the signature of a refresh token but accepts expired ones.
// Logout uses it to revoke a family even when the presented refresh token has lapsed.
func (j *JWTTokenizer) DecodeRefreshToken(tokenStr string) (*core.Claims, error) {
	claims, err := j.parse(tokenStr, j.refreshSecret, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("failed to decode refresh token: %w: %v", core.ErrRefreshTokenInvalid, err)
	}
	return claims, nil
}

func (j *JWTTokenizer) parse(tokenStr string, secret []byte, extra ...jwt.ParserOption) (*core.Claims, error) {
	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(ClockSkew),
		jwt.WithTimeFunc(j.now),
	}, extra...)

	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims.toCore(), nil
}

func sign(claims *core.Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, newSessionClaims(claims))
	return token.SignedString(secret)
}
