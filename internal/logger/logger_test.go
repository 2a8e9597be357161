package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/garyellow/admission-lists/internal/ctxutil"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log %q: %v", line, err)
	}
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := ParseLevel(tt.level); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
			if got := New(tt.level).Level(); got != tt.want {
				t.Errorf("New(%q).Level() = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestLogger_KeysRenamed(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Warn("case collision")

	entry := decodeLine(t, &buf)
	if entry["message"] != "case collision" {
		t.Errorf("message = %v, want %q", entry["message"], "case collision")
	}
	if entry["level"] != "warning" {
		t.Errorf("level = %v, want %q", entry["level"], "warning")
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("timestamp key missing")
	}
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("debug", &buf)

	log.WithModule("competition").
		WithRunID("run-1").
		WithError(errors.New("boom")).
		WithFields(map[string]any{"unique": 3}).
		Debug("built mapping")

	entry := decodeLine(t, &buf)
	if entry["module"] != "competition" {
		t.Errorf("module = %v", entry["module"])
	}
	if entry["run_id"] != "run-1" {
		t.Errorf("run_id = %v", entry["run_id"])
	}
	if entry["error"] != "boom" {
		t.Errorf("error = %v", entry["error"])
	}
	if entry["unique"] != float64(3) {
		t.Errorf("unique = %v", entry["unique"])
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("error", &buf)

	log.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info record written at error level: %s", buf.String())
	}
}

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	ctx := ctxutil.WithRunID(context.Background(), "run-42")
	ctx = ctxutil.WithRequestID(ctx, "req-7")
	log.InfoContext(ctx, "lookup")

	entry := decodeLine(t, &buf)
	if entry["run_id"] != "run-42" {
		t.Errorf("run_id = %v, want run-42", entry["run_id"])
	}
	if entry["request_id"] != "req-7" {
		t.Errorf("request_id = %v, want req-7", entry["request_id"])
	}
}

func TestMultiHandler(t *testing.T) {
	t.Parallel()

	var debugBuf, errorBuf bytes.Buffer
	mh := NewMultiHandler(
		nil,
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	if len(mh.handlers) != 2 {
		t.Fatalf("expected nil handlers to be filtered, got %d", len(mh.handlers))
	}

	log := slog.New(mh.WithAttrs([]slog.Attr{slog.String("module", "audit")}))
	log.Info("report written")

	if !strings.Contains(debugBuf.String(), `"module":"audit"`) {
		t.Errorf("debug handler missing record: %s", debugBuf.String())
	}
	if errorBuf.Len() != 0 {
		t.Errorf("error handler received info record: %s", errorBuf.String())
	}

	log.Error("failed")
	if !strings.Contains(errorBuf.String(), "failed") {
		t.Errorf("error handler missing error record: %s", errorBuf.String())
	}
}
