package weakcoll

import (
	"log/slog"
	"os"

	"github.com/hupe1980/weakcoll/engine"
)

// Logger wraps slog.Logger with weakcoll-specific context.
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
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithProfile adds the selected capability profile to the logger.
func (l *Logger) WithProfile(p engine.Profile) *Logger {
	return &Logger{
		Logger: l.Logger.With("profile", p.String()),
	}
}

// WithLen adds a live-entry count field to the logger.
func (l *Logger) WithLen(n int) *Logger {
	return &Logger{
		Logger: l.Logger.With("len", n),
	}
}

// LogReplace logs a replace operation.
func (l *Logger) LogReplace(n int, err error) {
	if err != nil {
		l.Error("replace failed",
			"error", err,
		)
	} else {
		l.Debug("replace completed",
			"len", n,
		)
	}
}

// LogClear logs a clear operation.
func (l *Logger) LogClear(before int) {
	l.Debug("clear completed",
		"before", before,
	)
}
