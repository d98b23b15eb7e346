package bovw

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger wraps slog.Logger with pipeline-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithBatch adds a batch ID field to the logger.
func (l *Logger) WithBatch(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("batch", id),
	}
}

// WithK adds a k (vocabulary size) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// WithAlpha adds an alpha (descriptor width) field to the logger.
func (l *Logger) WithAlpha(alpha int) *Logger {
	return &Logger{
		Logger: l.Logger.With("alpha", alpha),
	}
}

// LogAggregate logs an aggregation.
func (l *Logger) LogAggregate(ctx context.Context, images, skipped, totalImages int, duration time.Duration, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "aggregate failed",
			"images", images,
			"error", err,
		)
	case skipped > 0:
		l.WarnContext(ctx, "aggregate completed with skipped images",
			"images", images,
			"skipped", skipped,
			"total_images", totalImages,
			"duration", duration,
		)
	default:
		l.InfoContext(ctx, "aggregate completed",
			"images", images,
			"total_images", totalImages,
			"duration", duration,
		)
	}
}

// LogLearn logs a vocabulary learning run.
func (l *Logger) LogLearn(ctx context.Context, rows, k, iterations int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "learn failed",
			"k", k,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "learn completed",
			"rows", rows,
			"k", k,
			"iterations", iterations,
			"duration", duration,
		)
	}
}

// LogAssign logs a word assignment.
func (l *Logger) LogAssign(ctx context.Context, path string, pixels int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "assign failed",
			"path", path,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "assign completed",
			"path", path,
			"pixels", pixels,
		)
	}
}
