package logging

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestNew_FormatSelection(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	t.Setenv("LOG_FORMAT", "")
	if _, ok := New().Handler().(*slog.TextHandler); !ok {
		t.Error("default handler is not text")
	}

	t.Setenv("LOG_FORMAT", "json")
	if _, ok := New().Handler().(*slog.JSONHandler); !ok {
		t.Error("LOG_FORMAT=json did not select the JSON handler")
	}

	t.Setenv("LOG_FORMAT", "JSON")
	if _, ok := New().Handler().(*slog.JSONHandler); !ok {
		t.Error("LOG_FORMAT matching is not case-insensitive")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{" ERROR ", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if FromContext(ctx) != slog.Default() {
		t.Error("empty context does not fall back to slog.Default")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if FromContext(WithLogger(ctx, logger)) != logger {
		t.Error("stored logger not returned")
	}
}
