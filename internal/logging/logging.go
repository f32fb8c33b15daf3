// Package logging wraps log/slog with request/operation-scoped child
// loggers, distinct from the report package's JUnit artifact: this is
// for process lifecycle and per-transaction summary lines, not the
// testcase ledger itself.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger embeds *slog.Logger so all of slog's leveled logging methods
// are available directly, plus a handful of domain-scoped child
// logger helpers.
type Logger struct {
	*slog.Logger
}

// New builds a Logger writing to stdout at the given level ("debug",
// "info", "warn", "error") and format ("json", "text"); unrecognized
// values fall back to "info" and "json" respectively.
func New(level, format string) *Logger {
	return NewWithWriter(level, format, os.Stdout)
}

// NewWithWriter is New with an explicit writer, split out for tests.
func NewWithWriter(level, format string, writer io.Writer) *Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text":
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// WithCorrelationID returns a child logger that tags every subsequent
// entry with the transaction's correlation id.
func (l *Logger) WithCorrelationID(correlationID string) *Logger {
	return &Logger{Logger: l.With("correlation_id", correlationID)}
}

// WithOperation returns a child logger tagged with the matched
// operation id.
func (l *Logger) WithOperation(operationID string) *Logger {
	return &Logger{Logger: l.With("operation", operationID)}
}

// WithError returns a child logger tagged with err's message.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.With("error", err.Error())}
}
