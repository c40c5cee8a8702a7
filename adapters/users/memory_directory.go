package users

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/layer-3/walletauth/core"
)

// MemoryDirectory is an in-memory user directory for development and tests.
// New wallets are created active with the default role.
type MemoryDirectory struct {
	mu        sync.RWMutex
	byID      map[string]*core.User
	byAddress map[string]string
}

// NewMemoryDirectory creates an empty directory
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		byID:      make(map[string]*core.User),
		byAddress: make(map[string]string),
	}
}

// FindOrCreateByWallet returns the user for address, creating it on first sight
func (d *MemoryDirectory) FindOrCreateByWallet(ctx context.Context, address string) (*core.User, error) {
	address = strings.ToLower(address)

	d.mu.Lock()
	defer d.mu.Unlock()

	if id, ok := d.byAddress[address]; ok {
		u := *d.byID[id]
		return &u, nil
	}

	u := &core.User{
		ID:      uuid.NewString(),
		Address: address,
		Role:    core.RoleUser,
		Active:  true,
	}
	d.byID[u.ID] = u
	d.byAddress[address] = u.ID

	created := *u
	return &created, nil
}

// FindByID returns the user with id
func (d *MemoryDirectory) FindByID(ctx context.Context, id string) (*core.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.byID[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	found := *u
	return &found, nil
}

// Put inserts or replaces a user. Admin tooling and tests use it to set roles and lock accounts.
func (d *MemoryDirectory) Put(u core.User) {
	u.Address = strings.ToLower(u.Address)

	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.byID[u.ID]; ok && old.Address != u.Address {
		delete(d.byAddress, old.Address)
	}
	d.byID[u.ID] = &u
	d.byAddress[u.Address] = u.ID
}
