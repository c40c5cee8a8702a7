package walletauth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletauth"
	"github.com/layer-3/walletauth/adapters/events"
	"github.com/layer-3/walletauth/adapters/store"
	"github.com/layer-3/walletauth/adapters/tokenizer"
	"github.com/layer-3/walletauth/adapters/users"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/eth"
	"github.com/layer-3/walletauth/service"
	transport "github.com/layer-3/walletauth/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*httptest.Server, *users.MemoryDirectory) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessions := store.NewMemoryStore()
	dir := users.NewMemoryDirectory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	newService := func(realm service.Realm) *service.AuthService {
		tk, err := tokenizer.NewJWTTokenizer(realm.Name+"-a", realm.Name+"-r")
		require.NoError(t, err)
		return service.NewAuthService(service.Config{Realm: realm}, tk, sessions, dir,
			eth.NewVerifier(), events.NopPublisher{}, logger)
	}

	srv := httptest.NewServer(transport.SetupRouter(
		newService(service.StandardRealm), newService(service.ElevatedRealm), sessions, logger))
	t.Cleanup(srv.Close)
	return srv, dir
}

func TestClient_SessionLifecycle(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()
	client := walletauth.NewClient(srv.URL + "/")

	wallet, err := eth.NewWallet()
	require.NoError(t, err)

	tokens, err := client.Login(ctx, wallet)
	require.NoError(t, err)

	me, err := client.Me(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, wallet.Address(), me.WalletAddress)
	assert.Equal(t, "user", me.Role)

	rotated, err := client.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)

	_, err = client.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, walletauth.ErrUnauthorized)

	// Reuse took the rotated token down with the family
	_, err = client.Refresh(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, walletauth.ErrUnauthorized)

	require.NoError(t, client.Logout(ctx, rotated.AccessToken, ""))
	_, err = client.Me(ctx, rotated.AccessToken)
	assert.ErrorIs(t, err, walletauth.ErrUnauthorized)
}

func TestClient_AdminRealm(t *testing.T) {
	srv, dir := newServer(t)
	ctx := context.Background()
	admin := walletauth.NewClient(srv.URL, walletauth.WithAdminRealm())

	wallet, err := eth.NewWallet()
	require.NoError(t, err)

	_, err = admin.Login(ctx, wallet)
	assert.ErrorIs(t, err, walletauth.ErrUnauthorized)

	u, err := dir.FindOrCreateByWallet(ctx, wallet.Address())
	require.NoError(t, err)
	u.Role = core.RoleModerator
	dir.Put(*u)

	tokens, err := admin.Login(ctx, wallet)
	require.NoError(t, err)

	me, err := admin.Me(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "moderator", me.Role)

	require.NoError(t, admin.Logout(ctx, tokens.AccessToken, tokens.RefreshToken))
	_, err = admin.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, walletauth.ErrUnauthorized)
}

func TestClient_InvalidAddress(t *testing.T) {
	srv, _ := newServer(t)
	_, err := walletauth.NewClient(srv.URL).Challenge(context.Background(), "0x1234")
	assert.ErrorIs(t, err, walletauth.ErrInvalidRequest)
}

func TestClient_ServerDown(t *testing.T) {
	srv, _ := newServer(t)
	url := srv.URL
	srv.Close()

	_, err := walletauth.NewClient(url).Challenge(context.Background(), "0x0000000000000000000000000000000000000001")
	assert.ErrorIs(t, err, walletauth.ErrUnavailable)
}
