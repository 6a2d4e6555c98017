// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// Context keys for logging
const (
	CorrelationID LogContextKey = "correlation_id"
)

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationID).(string); ok {
		return id
	}
	return ""
}

// EventLogger provides structured logging for the lifecycle event stream:
// Redis publishes and WebSocket fan-out.
type EventLogger struct {
	stream string
	logger *Logger
}

// NewEventLogger creates an EventLogger for the given stream name.
func NewEventLogger(stream string) *EventLogger {
	return &EventLogger{stream: stream, logger: GlobalLogger}
}

// LogConnect logs a WebSocket subscriber connection.
func (l *EventLogger) LogConnect(ctx context.Context, userID uint, total int) {
	l.logger.InfoContext(ctx, "event stream connected",
		slog.String("stream", l.stream),
		slog.Uint64("user_id", uint64(userID)),
		slog.Int("total_connections", total),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogDisconnect logs a WebSocket subscriber disconnection.
func (l *EventLogger) LogDisconnect(ctx context.Context, userID uint, reason string) {
	l.logger.InfoContext(ctx, "event stream disconnected",
		slog.String("stream", l.stream),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("reason", reason),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogPublish logs a published lifecycle event.
func (l *EventLogger) LogPublish(ctx context.Context, kind string, entity string, entityID uint) {
	l.logger.InfoContext(ctx, "event published",
		slog.String("stream", l.stream),
		slog.String("kind", kind),
		slog.String("entity", entity),
		slog.Uint64("entity_id", uint64(entityID)),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogError logs an event stream error.
func (l *EventLogger) LogError(ctx context.Context, err error, operation string) {
	l.logger.ErrorContext(ctx, "event stream error",
		slog.String("stream", l.stream),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}
