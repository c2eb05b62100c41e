package common

import (
	"context"
	"log/slog"
	"os"
	"regexp"
)

// Fields represents structured logging fields.
type Fields map[string]any

// SetupLogger configures the global logger with appropriate settings.
func SetupLogger(level slog.Level, format string) error {
	var handler slog.Handler

	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "console":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

var (
	// Account and BSB numbers as they appear in statement text.
	accountNumberPattern = regexp.MustCompile(`\b\d{3}[- ]?\d{3}[- ]?\d{2,6}\b`)
	longDigitPattern     = regexp.MustCompile(`\b\d{8,}\b`)
)

// ScrubPII masks account numbers and long digit runs before a transaction
// description or statement fragment reaches the logs.
func ScrubPII(s string) string {
	s = accountNumberPattern.ReplaceAllString(s, "[redacted]")
	return longDigitPattern.ReplaceAllString(s, "[redacted]")
}

// LogError logs an error with additional context.
func LogError(err error, msg string, fields Fields) {
	attrs := make([]slog.Attr, 0, len(fields)+1)
	attrs = append(attrs, slog.String("error", err.Error()))

	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}

	slog.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}

// LogInfo logs an info message with fields.
func LogInfo(msg string, fields Fields) {
	attrs := make([]slog.Attr, 0, len(fields))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}

	slog.LogAttrs(context.Background(), slog.LevelInfo, msg, attrs...)
}
