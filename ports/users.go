package ports

import (
	"context"

	"github.com/layer-3/walletauth/core"
)

// UserDirectory is the narrow contract the auth core needs from the user store.
// FindByID returns core.ErrUserNotFound for unknown ids; infrastructure failures
// are wrapped in core.ErrDirectoryUnavailable.
type UserDirectory interface {
	FindOrCreateByWallet(ctx context.Context, address string) (*core.User, error)
	FindByID(ctx context.Context, id string) (*core.User, error)
}
