package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFromContext_CarriesIDs(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	Setup("info", "json", &buf)

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	ctx = WithRun(ctx, "run-1")
	WithFields(ctx, "dataset", "snb-social").Info("run started")

	out := buf.String()
	for _, want := range []string{`"request_id":"req-1"`, `"run_id":"run-1"`, `"dataset":"snb-social"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %s", out, want)
		}
	}
}

func TestSetup_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := Setup("warn", "text", &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("info message logged at warn level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn message missing: %q", buf.String())
	}
}

func TestRunID_Empty(t *testing.T) {
	if got := RunID(context.Background()); got != "" {
		t.Errorf("RunID = %q, want empty", got)
	}
}
