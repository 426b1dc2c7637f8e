// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
)

// GlobalLogger is the default logger for repository and background work.
var GlobalLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// SetLogger replaces GlobalLogger. A nil logger is ignored.
func SetLogger(l *slog.Logger) {
	if l != nil {
		GlobalLogger = l
	}
}

// RepoLogger provides structured logging for repository operations on one table.
type RepoLogger struct {
	tableName string
}

// NewRepoLogger creates a new RepoLogger for the given table.
func NewRepoLogger(tableName string) *RepoLogger {
	return &RepoLogger{tableName: tableName}
}

// LogWrite logs a successful write (create, update, delete) at debug level.
func (l *RepoLogger) LogWrite(ctx context.Context, operation string, fields ...any) {
	attrs := append([]any{
		slog.String("table", l.tableName),
		slog.String("operation", operation),
	}, fields...)
	GlobalLogger.DebugContext(ctx, "repository write", attrs...)
}

// LogError logs a repository error.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string, fields ...any) {
	attrs := append([]any{
		slog.String("table", l.tableName),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	}, fields...)
	GlobalLogger.ErrorContext(ctx, "repository error", attrs...)
}

// LogAsyncOperationStart logs the start of a background operation.
func LogAsyncOperationStart(ctx context.Context, operation string, fields ...any) {
	attrs := append([]any{
		slog.String("operation", operation),
		slog.String("type", "async_start"),
	}, fields...)
	GlobalLogger.InfoContext(ctx, "async operation started", attrs...)
}

// LogAsyncOperationEnd logs the completion of a background operation.
func LogAsyncOperationEnd(ctx context.Context, operation string, fields ...any) {
	attrs := append([]any{
		slog.String("operation", operation),
		slog.String("type", "async_end"),
	}, fields...)
	GlobalLogger.InfoContext(ctx, "async operation completed", attrs...)
}

// LogAsyncOperationError logs an error in a background operation.
func LogAsyncOperationError(ctx context.Context, operation string, err error, fields ...any) {
	attrs := append([]any{
		slog.String("operation", operation),
		slog.String("type", "async_error"),
		slog.String("error", err.Error()),
	}, fields...)
	GlobalLogger.ErrorContext(ctx, "async operation failed", attrs...)
}
