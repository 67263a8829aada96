// Package logging configures the process-wide structured logger and carries
// it through request contexts.
//
// paperqa is first a terminal tool (ask, search, collect, index), so the
// default handler is human-readable text on stderr; `serve` deployments
// switch to JSON for log shippers. Both knobs also have YAML config keys
// (logging.level, logging.format).
//
//	LOG_LEVEL  = debug | info | warn | error  (default: info)
//	LOG_FORMAT = text | json                  (default: text)
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// ctxKey keys the logger in a context. Unexported so only this package can
// store it.
type ctxKey struct{}

// New constructs a [*slog.Logger] from LOG_LEVEL and LOG_FORMAT.
func New() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(os.Getenv("LOG_LEVEL"))}

	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// WithLogger returns a copy of ctx carrying logger. The server's request
// middleware uses this to attach a per-request child logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger carried by ctx, or [slog.Default] when none
// is present, so call sites never nil-check.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// parseLevel maps a LOG_LEVEL string to a [slog.Level]. Unknown values fall
// back to Info rather than erroring; a typo in a log knob should never stop
// the binary.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
