// Package logging provides the structured logger used across hintprefs.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with hintprefs field helpers so that field names
// stay consistent.
type Logger struct {
	*slog.Logger
}

// New creates a Logger with the given handler. A nil handler logs text to
// stderr at info level.
func New(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewText creates a Logger writing human-readable text to w.
func NewText(w io.Writer, level slog.Level) *Logger {
	return New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewJSON creates a Logger writing JSON records to w.
func NewJSON(w io.Writer, level slog.Level) *Logger {
	return New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Noop returns a Logger that discards everything.
func Noop() *Logger {
	return New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// WithLanguage tags records with a classifier.
func (l *Logger) WithLanguage(id string) *Logger {
	return &Logger{Logger: l.Logger.With("language", id)}
}

// WithSession tags records with a configuration session ID.
func (l *Logger) WithSession(id string) *Logger {
	return &Logger{Logger: l.Logger.With("session", id)}
}

// WithBackend tags records with the persistence backend name.
func (l *Logger) WithBackend(name string) *Logger {
	return &Logger{Logger: l.Logger.With("backend", name)}
}

// ParseLevel converts "debug", "info", "warn" or "error" to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// FromConfig builds a logger from a level name and a format ("text" or
// "json").
func FromConfig(w io.Writer, level, format string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return NewText(w, lvl), nil
	case "json":
		return NewJSON(w, lvl), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
