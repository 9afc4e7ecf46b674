package events

import (
	"context"
	"log/slog"
)

// LoggingPublisher writes events to the log instead of a broker.
// It stands in when no Kafka brokers are configured.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, eventType string, key string, payload []byte) error {
	p.logger.InfoContext(ctx, "published event",
		"event_type", eventType,
		"key", key,
		"payload", string(payload),
	)
	return nil
}
