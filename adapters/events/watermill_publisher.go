package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/walletauth/ports"
)

const (
	// LoginTopic carries successful wallet logins
	LoginTopic = "walletauth.login"

	// LogoutTopic carries explicit logouts
	LogoutTopic = "walletauth.logout"

	// SecurityTopic carries refresh token reuse alerts
	SecurityTopic = "walletauth.security"
)

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin publishes a login event
func (p *WatermillPublisher) PublishLogin(ctx context.Context, event ports.LoginEvent) error {
	return p.publish(ctx, LoginTopic, event)
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, event ports.LogoutEvent) error {
	return p.publish(ctx, LogoutTopic, event)
}

// PublishReuseDetected publishes a security alert
func (p *WatermillPublisher) PublishReuseDetected(ctx context.Context, event ports.ReuseEvent) error {
	return p.publish(ctx, SecurityTopic, event)
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", topic, err)
	}
	return nil
}

// NopPublisher drops every event. It is used when the event stream is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishLogin(context.Context, ports.LoginEvent) error         { return nil }
func (NopPublisher) PublishLogout(context.Context, ports.LogoutEvent) error       { return nil }
func (NopPublisher) PublishReuseDetected(context.Context, ports.ReuseEvent) error { return nil }
