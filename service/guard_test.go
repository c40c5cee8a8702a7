package service

import (
	"context"
	"testing"
	"time"

	"github.com/layer-3/walletauth/adapters/tokenizer"
	"github.com/layer-3/walletauth/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_Authenticate(t *testing.T) {
	f := newFixture(t, StandardRealm)
	wallet := newWallet(t)
	pair := f.login(t, wallet)

	principal, err := f.svc.Guard().Authenticate(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, pair.Access.Subject, principal.User.ID)
	assert.Equal(t, wallet.Address(), principal.User.Address)
	assert.Equal(t, pair.Access.TokenID, principal.Claims.TokenID)
	assert.Equal(t, pair.Access.FamilyID, principal.Claims.FamilyID)
}

func TestGuard_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("garbage", func(t *testing.T) {
		f := newFixture(t, StandardRealm)
		_, err := f.svc.Guard().Authenticate(ctx, "not.a.token")
		assert.ErrorIs(t, err, core.ErrAccessTokenInvalid)
	})

	t.Run("refresh token", func(t *testing.T) {
		f := newFixture(t, StandardRealm)
		pair := f.login(t, newWallet(t))
		_, err := f.svc.Guard().Authenticate(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, core.ErrAccessTokenInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		f := newFixture(t, StandardRealm)
		pair := f.login(t, newWallet(t))
		f.clock.Advance(DefaultAccessTTL + tokenizer.ClockSkew + time.Second)
		_, err := f.svc.Guard().Authenticate(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, core.ErrAccessTokenInvalid)
	})

	t.Run("revoked", func(t *testing.T) {
		f := newFixture(t, StandardRealm)
		pair := f.login(t, newWallet(t))
		require.NoError(t, f.svc.Ledger().RevokeUntil(ctx, pair.Access.TokenID, pair.Access.ExpiresAt))
		_, err := f.svc.Guard().Authenticate(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, core.ErrTokenRevoked)
	})

	t.Run("locked user", func(t *testing.T) {
		f := newFixture(t, StandardRealm)
		pair := f.login(t, newWallet(t))
		u, err := f.users.FindByID(ctx, pair.Access.Subject)
		require.NoError(t, err)
		u.Active = false
		f.users.Put(*u)

		_, err = f.svc.Guard().Authenticate(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, core.ErrUserInactive)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t, StandardRealm)
		claims := &core.Claims{
			Subject:   "ghost",
			TokenID:   "jti",
			IssuedAt:  f.clock.Now(),
			ExpiresAt: f.clock.Now().Add(time.Minute),
		}
		token, err := f.tokenizer.ClaimsToAccessToken(claims)
		require.NoError(t, err)
		_, err = f.svc.Guard().Authenticate(ctx, token)
		assert.ErrorIs(t, err, core.ErrUserInactive)
	})
}

func elevate(t *testing.T, f *fixture, address string, role core.Role) {
	t.Helper()
	u, err := f.users.FindOrCreateByWallet(context.Background(), address)
	require.NoError(t, err)
	u.Role = role
	f.users.Put(*u)
}

func TestElevatedRealm_RequiresElevatedRole(t *testing.T) {
	f := newFixture(t, ElevatedRealm)
	ctx := context.Background()
	wallet := newWallet(t)

	challenge, err := f.svc.GenerateNonce(ctx, wallet.Address())
	require.NoError(t, err)
	sig, err := wallet.SignText(challenge.Message)
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, wallet.Address(), sig)
	assert.ErrorIs(t, err, core.ErrInsufficientRole)

	for _, role := range core.ElevatedRoles {
		elevate(t, f, wallet.Address(), role)
		pair := f.login(t, wallet)
		principal, err := f.svc.Guard().Authenticate(ctx, pair.AccessToken)
		require.NoError(t, err, role)
		assert.Equal(t, role, principal.Claims.Role)
	}
}

func TestElevatedRealm_RejectsDemotedToken(t *testing.T) {
	f := newFixture(t, ElevatedRealm)
	ctx := context.Background()
	wallet := newWallet(t)

	elevate(t, f, wallet.Address(), core.RoleAdmin)
	pair := f.login(t, wallet)

	// A token carrying a non-elevated role never passes the elevated guard
	claims := pair.Access
	claims.Role = core.RoleUser
	token, err := f.tokenizer.ClaimsToAccessToken(&claims)
	require.NoError(t, err)
	_, err = f.svc.Guard().Authenticate(ctx, token)
	assert.ErrorIs(t, err, core.ErrInsufficientRole)

	// Demotion in the directory stops the next rotation
	elevate(t, f, wallet.Address(), core.RoleUser)
	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, core.ErrInsufficientRole)
}

func TestElevatedRealm_IndependentOfStandardSessions(t *testing.T) {
	standard := newFixture(t, StandardRealm)
	ctx := context.Background()

	// Both realms share one store and one directory, as in production
	elevated := newFixtureWithStore(t, ElevatedRealm, standard.store, standard.clock, standard.users)

	wallet := newWallet(t)
	elevate(t, standard, wallet.Address(), core.RoleAdmin)

	userPair := standard.login(t, wallet)
	adminPair := elevated.login(t, wallet)

	// Tokens do not cross realms
	_, err := elevated.svc.Guard().Authenticate(ctx, userPair.AccessToken)
	assert.ErrorIs(t, err, core.ErrAccessTokenInvalid)
	_, err = standard.svc.Guard().Authenticate(ctx, adminPair.AccessToken)
	assert.ErrorIs(t, err, core.ErrAccessTokenInvalid)

	// Logging out of the admin session leaves the standard session intact
	principal, err := elevated.svc.Guard().Authenticate(ctx, adminPair.AccessToken)
	require.NoError(t, err)
	require.NoError(t, elevated.svc.Logout(ctx, principal, adminPair.RefreshToken))

	_, err = elevated.svc.Refresh(ctx, adminPair.RefreshToken)
	assert.ErrorIs(t, err, core.ErrRefreshTokenRevoked)

	_, err = standard.svc.Guard().Authenticate(ctx, userPair.AccessToken)
	assert.NoError(t, err)
	_, err = standard.svc.Refresh(ctx, userPair.RefreshToken)
	assert.NoError(t, err)

	exists, err := standard.store.Exists(ctx, "admin:blacklist:"+adminPair.Access.TokenID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRealm_Permits(t *testing.T) {
	assert.True(t, StandardRealm.Permits(core.RoleUser))
	assert.True(t, StandardRealm.Permits(core.RoleAdmin))
	assert.False(t, ElevatedRealm.Permits(core.RoleUser))
	assert.True(t, ElevatedRealm.Permits(core.RoleModerator))
}
