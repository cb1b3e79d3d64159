package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"podnotes/internal/services"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestConsoleHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Info("note published", String("note_path", "/tmp/a.md"), Int64(FieldEpisodeID, 7))

	out := buf.String()
	for _, fragment := range []string{"INFO", "note published", "note_path=/tmp/a.md", "episode_id=7"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in output %q", fragment, out)
		}
	}
}

func TestConsoleHandlerComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	NewComponentLogger(logger, "resolver").Warn("content unavailable")

	out := buf.String()
	if !strings.Contains(out, "[resolver]") {
		t.Fatalf("expected component prefix, got %q", out)
	}
	if !strings.Contains(out, "WARN") {
		t.Fatalf("expected WARN label, got %q", out)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	base := slog.New(newConsoleHandler(&buf, lvl, false))

	ctx := services.WithEpisodeID(context.Background(), 42)
	ctx = services.WithStage(ctx, "summarizing")
	ctx = services.WithIdentity(ctx, "abc123")

	WithContext(ctx, base).Info("stage started")

	out := buf.String()
	for _, fragment := range []string{"episode_id=42", "stage=summarizing", "identity=abc123"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in output %q", fragment, out)
		}
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected nop logger to be disabled")
	}
}
