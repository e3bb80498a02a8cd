package logger

import (
	"context"

	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// RunIDKey is the context key for the extraction run ID
	RunIDKey contextKey = "run_id"
	// GroupKey is the context key for the data group
	GroupKey contextKey = "group"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, returns a no-op logger if
// not found
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRunID adds the run ID to context and returns an enriched logger
func WithRunID(ctx context.Context, logger *zap.Logger, runID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RunIDKey, runID)
	enriched := logger.With(zap.String("run_id", runID))
	return WithContext(ctx, enriched), enriched
}

// WithGroup adds the data group to context and returns an enriched logger
func WithGroup(ctx context.Context, logger *zap.Logger, group string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, GroupKey, group)
	enriched := logger.With(zap.String("group", group))
	return WithContext(ctx, enriched), enriched
}

// GetRunID retrieves the run ID from context
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// GetGroup retrieves the data group from context
func GetGroup(ctx context.Context) string {
	if group, ok := ctx.Value(GroupKey).(string); ok {
		return group
	}
	return ""
}
