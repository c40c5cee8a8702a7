package ports

import "context"

// LoginEvent is emitted after a successful wallet login
type LoginEvent struct {
	Realm    string `json:"realm"`
	UserID   string `json:"user_id"`
	Address  string `json:"address"`
	FamilyID string `json:"family_id"`
}

// LogoutEvent is emitted after an explicit logout
type LogoutEvent struct {
	Realm    string `json:"realm"`
	UserID   string `json:"user_id"`
	TokenID  string `json:"token_id"`
	FamilyID string `json:"family_id,omitempty"`
}

// ReuseEvent is a security alert raised when a rotated refresh token is replayed
type ReuseEvent struct {
	Realm    string `json:"realm"`
	UserID   string `json:"user_id"`
	FamilyID string `json:"family_id"`
	TokenID  string `json:"token_id"`
}

// EventPublisher publishes auth events to other services. Publishing is best-effort.
type EventPublisher interface {
	PublishLogin(ctx context.Context, event LoginEvent) error
	PublishLogout(ctx context.Context, event LogoutEvent) error
	PublishReuseDetected(ctx context.Context, event ReuseEvent) error
}
