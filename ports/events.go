package ports

import "context"

// EventPublisher notifies other instances about session changes. Publish
// failures are logged by the caller, never surfaced to the end user.
type EventPublisher interface {
	PublishSignIn(ctx context.Context, userID string) error
	PublishLogout(ctx context.Context, userID, deviceID string) error
}
