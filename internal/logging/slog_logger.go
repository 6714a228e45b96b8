// file: internal/logging/slog_logger.go
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level identifies the minimum severity a message must have to be emitted.
type Level = slog.Level

// Supported log levels, in increasing severity.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// levelVar holds the current minimum level for the default slog backend.
// Adjustable at runtime via SetLevel.
var levelVar = new(slog.LevelVar)

// slogLogger implements Logger on top of log/slog with structured JSON output.
type slogLogger struct {
	logger *slog.Logger
}

// Debug logs a debug-level message with structured key/value pairs.
func (l *slogLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

// Info logs an info-level message with structured key/value pairs.
func (l *slogLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

// Warn logs a warning-level message with structured key/value pairs.
func (l *slogLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

// Error logs an error-level message with structured key/value pairs.
func (l *slogLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

// WithContext returns the logger unchanged; slog handlers receive the context
// at call sites, so no per-logger context is retained.
func (l *slogLogger) WithContext(_ context.Context) Logger {
	return l
}

// WithField returns a child logger carrying an additional structured field.
func (l *slogLogger) WithField(key string, value any) Logger {
	return &slogLogger{logger: l.logger.With(key, value)}
}

// InitLogging configures the default logger to write JSON records at the given
// level to the provided writer. Primarily used by tests; SetupDefaultLogger is
// the entry point for normal process startup.
func InitLogging(level Level, w io.Writer) {
	levelVar.Set(level)
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelVar})
	SetDefaultLogger(&slogLogger{logger: slog.New(handler)})
}

// SetupDefaultLogger configures the application-wide logger writing JSON to
// stderr at the named level ("debug", "info", "warn", "error"). Stdout is left
// untouched because the stdio transport owns it.
func SetupDefaultLogger(level string) {
	InitLogging(ParseLevel(level), os.Stderr)
}

// ParseLevel maps a level name to a Level, defaulting to info for unknown names.
func ParseLevel(level string) Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetLevel adjusts the minimum level of the default slog backend at runtime.
func SetLevel(level Level) {
	levelVar.Set(level)
}

// IsDebugEnabled reports whether debug-level records are currently emitted.
func IsDebugEnabled() bool {
	return levelVar.Level() <= LevelDebug
}
