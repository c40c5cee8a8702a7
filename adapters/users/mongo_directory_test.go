package users

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/walletauth/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoDatabase connects to WALLETAUTH_TEST_MONGODB_URL and returns a throwaway database
func mongoDatabase(t *testing.T) *mongo.Database {
	t.Helper()

	url := os.Getenv("WALLETAUTH_TEST_MONGODB_URL")
	if url == "" {
		t.Skip("WALLETAUTH_TEST_MONGODB_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database("walletauth_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	require.NoError(t, EnsureIndexes(ctx, db))
	return db
}

func TestMongoDirectory_FindOrCreate(t *testing.T) {
	dir := NewMongoDirectory(mongoDatabase(t))
	ctx := context.Background()

	u, err := dir.FindOrCreateByWallet(ctx, "0xABCDEF0123456789abcdef0123456789ABCDEF01")
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", u.Address)
	assert.Equal(t, core.RoleUser, u.Role)
	assert.True(t, u.Active)

	again, err := dir.FindOrCreateByWallet(ctx, u.Address)
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	byID, err := dir.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, byID)

	_, err = dir.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrUserNotFound)
}

func TestMongoDirectory_ConcurrentFirstLogin(t *testing.T) {
	dir := NewMongoDirectory(mongoDatabase(t))
	ctx := context.Background()
	address := "0x00000000000000000000000000000000000000aa"

	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := dir.FindOrCreateByWallet(ctx, address)
			if assert.NoError(t, err) {
				ids[i] = u.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestUserDocumentToCore(t *testing.T) {
	doc := userDocument{ID: "u1", Address: "0xabc", Role: "admin", Active: true}
	assert.Equal(t, &core.User{ID: "u1", Address: "0xabc", Role: core.RoleAdmin, Active: true}, doc.toCore())
}
