package service

import (
	"time"

	"github.com/layer-3/walletauth/core"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultNonceTTL   = 5 * time.Minute
)

// Realm isolates one class of sessions. Standard and elevated sessions for the same user
// live in different key namespaces and are signed with different secrets, so revoking one
// never touches the other.
type Realm struct {
	Name      string // Label for logs and events
	KeyPrefix string // Prepended to every nonce, family and blacklist key
	Elevated  bool   // Admits only core.ElevatedRoles
}

// StandardRealm serves ordinary wallet sessions
var StandardRealm = Realm{Name: "user"}

// ElevatedRealm serves administrative sessions
var ElevatedRealm = Realm{Name: "admin", KeyPrefix: "admin:", Elevated: true}

// Permits reports whether role may hold a session in the realm
func (r Realm) Permits(role core.Role) bool {
	return !r.Elevated || role.IsElevated()
}

func (r Realm) nonceKey(address string) string   { return r.KeyPrefix + "nonce:" + address }
func (r Realm) familyKey(familyID string) string { return r.KeyPrefix + "family:" + familyID }
func (r Realm) blacklistKey(jti string) string   { return r.KeyPrefix + "blacklist:" + jti }

// Config holds the protocol parameters of one realm
type Config struct {
	Realm      Realm
	Product    string // Name shown in the challenge message
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	NonceTTL   time.Duration
}

func (c Config) withDefaults() Config {
	if c.Realm.Name == "" {
		c.Realm = StandardRealm
	}
	if c.Product == "" {
		c.Product = "walletauth"
	}
	if c.AccessTTL <= 0 {
		c.AccessTTL = DefaultAccessTTL
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = DefaultRefreshTTL
	}
	if c.NonceTTL <= 0 {
		c.NonceTTL = DefaultNonceTTL
	}
	return c
}
