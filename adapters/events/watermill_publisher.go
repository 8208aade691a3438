package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/acmebet/gatekeeper/ports"
	"github.com/google/uuid"
)

const (
	// SignInTopic carries sign-in events for other instances.
	SignInTopic = "gatekeeper.signin"

	// LogoutTopic carries logout events for other instances.
	LogoutTopic = "gatekeeper.logout"
)

// SignInEvent is published after a successful sign-in or sign-up.
type SignInEvent struct {
	UserID string `json:"user_id"`
}

// LogoutEvent is published after a session row is deleted.
type LogoutEvent struct {
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id"`
}

// WatermillPublisher implements the EventPublisher port on a watermill
// message publisher.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher wraps a watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

var _ ports.EventPublisher = (*WatermillPublisher)(nil)

// PublishSignIn fans out a sign-in event.
func (p *WatermillPublisher) PublishSignIn(ctx context.Context, userID string) error {
	return p.publish(SignInTopic, SignInEvent{UserID: userID})
}

// PublishLogout fans out a logout event.
func (p *WatermillPublisher) PublishLogout(ctx context.Context, userID, deviceID string) error {
	return p.publish(LogoutTopic, LogoutEvent{UserID: userID, DeviceID: deviceID})
}

func (p *WatermillPublisher) publish(topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// NopPublisher discards events; tests and single-instance runs use it.
type NopPublisher struct{}

// PublishSignIn discards the event.
func (NopPublisher) PublishSignIn(ctx context.Context, userID string) error { return nil }

// PublishLogout discards the event.
func (NopPublisher) PublishLogout(ctx context.Context, userID, deviceID string) error { return nil }
