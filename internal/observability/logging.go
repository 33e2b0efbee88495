// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
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

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id := ctx.Value(CorrelationID); id != nil {
		return id.(string)
	}
	return ""
}

// LifecycleLogger provides structured logging for request lifecycle events.
type LifecycleLogger struct {
	logger *Logger
}

// NewLifecycleLogger returns a logger for lifecycle transitions.
func NewLifecycleLogger() *LifecycleLogger {
	return &LifecycleLogger{logger: GlobalLogger}
}

// LogTransition logs a status transition on a service request.
func (l *LifecycleLogger) LogTransition(ctx context.Context, requestID string, from, to string) {
	l.logger.InfoContext(ctx, "request transition",
		slog.String("request_id", requestID),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogDocumentSkip logs a skipped file during a multi-file upload.
func (l *LifecycleLogger) LogDocumentSkip(ctx context.Context, requestID, name string, err error) {
	l.logger.WarnContext(ctx, "document store failed, file skipped",
		slog.String("request_id", requestID),
		slog.String("file", name),
		slog.String("error", err.Error()),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}
