package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// userDocument is the stored shape of a user
type userDocument struct {
	ID        string    `bson:"_id"`
	Address   string    `bson:"wallet_address"`
	Role      string    `bson:"role"`
	Active    bool      `bson:"active"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d userDocument) toCore() *core.User {
	return &core.User{
		ID:      d.ID,
		Address: d.Address,
		Role:    core.Role(d.Role),
		Active:  d.Active,
	}
}

// MongoDirectory implements the UserDirectory interface on a MongoDB collection
type MongoDirectory struct {
	users   *mongo.Collection
	timeout time.Duration
}

// NewMongoDirectory creates a directory backed by the "users" collection of db
func NewMongoDirectory(db *mongo.Database) ports.UserDirectory {
	return &MongoDirectory{
		users:   db.Collection("users"),
		timeout: 5 * time.Second,
	}
}

// EnsureIndexes creates the unique wallet address index
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "wallet_address", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create wallet index: %w", err)
	}
	return nil
}

// FindOrCreateByWallet upserts on the wallet address so concurrent first logins converge on one user
func (m *MongoDirectory) FindOrCreateByWallet(ctx context.Context, address string) (*core.User, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	address = strings.ToLower(address)
	filter := bson.M{"wallet_address": address}
	// The equality filter seeds wallet_address on insert
	update := bson.M{"$setOnInsert": bson.M{
		"_id":        uuid.NewString(),
		"role":       string(core.RoleUser),
		"active":     true,
		"created_at": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc userDocument
	err := m.users.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// Lost an upsert race against another first login; the winner's document is there now
		err = m.users.FindOne(ctx, filter).Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("find or create user: %w: %v", core.ErrDirectoryUnavailable, err)
	}
	return doc.toCore(), nil
}

// FindByID returns the user with id
func (m *MongoDirectory) FindByID(ctx context.Context, id string) (*core.User, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var doc userDocument
	err := m.users.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w: %v", core.ErrDirectoryUnavailable, err)
	}
	return doc.toCore(), nil
}
