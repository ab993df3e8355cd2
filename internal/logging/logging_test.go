package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSetup(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		Setup(&buf, "info", "json")
		slog.Debug("hidden")
		slog.Info("shown", "run", "abc")

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("Expected one JSON line, got %q: %v", buf.String(), err)
		}
		if entry["msg"] != "shown" || entry["run"] != "abc" {
			t.Errorf("Unexpected entry: %v", entry)
		}
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		Setup(&buf, "debug", "text")
		slog.Debug("visible")
		if !strings.Contains(buf.String(), "msg=visible") {
			t.Errorf("Expected debug line, got %q", buf.String())
		}
	})
}
