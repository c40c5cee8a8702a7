package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Role is the directory role carried in token claims
type Role string

const (
	RoleUser       Role = "user"
	RoleModerator  Role = "moderator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// ElevatedRoles are the roles accepted by the administrative realm
var ElevatedRoles = []Role{RoleAdmin, RoleSuperAdmin, RoleModerator}

// IsElevated reports whether the role belongs to ElevatedRoles
func (r Role) IsElevated() bool {
	for _, elevated := range ElevatedRoles {
		if r == elevated {
			return true
		}
	}
	return false
}

// User is the directory view of an account. Authentication reads it but never defines it.
type User struct {
	ID      string
	Address string
	Role    Role
	Active  bool
}

// Challenge is an issued login nonce together with the exact message the wallet must sign
type Challenge struct {
	Address   string    // Normalized wallet address
	Nonce     string    // 256-bit random hex
	Message   string    // Text to be signed with personal_sign
	ExpiresAt time.Time // When the nonce stops being accepted
}

// Claims is the payload shared by access and refresh tokens
type Claims struct {
	Subject   string // User id
	Address   string // Normalized wallet address
	Role      Role
	FamilyID  string // Refresh lineage this token belongs to
	TokenID   string // jti
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair is the result of a login or a rotation
type TokenPair struct {
	AccessToken  string
	RefreshToken string

	Access  Claims
	Refresh Claims
}

// Principal is the authenticated caller attached to a request by the guard
type Principal struct {
	User   *User
	Claims Claims
}

// NormalizeAddress validates a 0x-prefixed 20-byte hex address and lowercases it
func NormalizeAddress(address string) (string, error) {
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		return "", fmt.Errorf("%q: %w", address, ErrInvalidAddress)
	}
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%q: %w", address, ErrInvalidAddress)
	}
	return strings.ToLower(address), nil
}

// ChallengeMessage builds the text a wallet signs to prove key possession.
// It must stay byte-for-byte stable: the verifier rebuilds it from the stored nonce.
func ChallengeMessage(product, address, nonce string) string {
	return "Welcome to " + product + "!\n\n" +
		"Sign this message to authenticate your wallet.\n\n" +
		"Wallet: " + address + "\n" +
		"Nonce: " + nonce + "\n\n" +
		"This request will not trigger a blockchain transaction or cost any gas."
}
