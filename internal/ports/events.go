package ports

import "context"

// EventPublisher is the outbound audit-stream publish port.
// The application and worker use this abstraction to keep broker/client
// concerns in adapters.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, key string, payload []byte) error
}
