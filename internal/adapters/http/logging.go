package http

import (
	"context"
	"log/slog"
)

const serviceName = "reqquli"

func httpLogger() *slog.Logger {
	return slog.Default().With(
		"service", serviceName,
		"module", "http",
		"layer", "adapter",
	)
}

// levelForStatus keys log severity off the response class: server faults are
// errors, client faults are warnings, everything else is informational.
func levelForStatus(statusCode int) slog.Level {
	switch {
	case statusCode >= 500:
		return slog.LevelError
	case statusCode >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func logHTTPOperationError(ctx context.Context, operation string, statusCode int, code, message string, err error) {
	logger := httpLogger().With(
		"operation", operation,
		"outcome", "failure",
		"status_code", statusCode,
		"error_code", code,
		"message", message,
		"request_id", requestIDFromContext(ctx),
	)
	if err != nil {
		logger = logger.With("error", err.Error())
	}
	logger.Log(ctx, levelForStatus(statusCode), "http operation failed")
}
