package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T, level, format string) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Config{Level: level, Format: format, Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = SetLevel("info") })
	return l, &buf
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parse JSON log %q: %v", buf.String(), err)
	}
	return entry
}

func TestNew_Levels(t *testing.T) {
	l, buf := newBufferLogger(t, "debug", "json")

	tests := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelDebug, "DEBUG"},
		{slog.LevelInfo, "INFO"},
		{slog.LevelWarn, "WARN"},
		{slog.LevelError, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			buf.Reset()
			l.Log(context.Background(), tt.level, "cell applied", "x", 3)

			entry := decodeEntry(t, buf)
			if entry["level"] != tt.want {
				t.Errorf("level = %v, want %s", entry["level"], tt.want)
			}
			if entry["x"] != float64(3) {
				t.Errorf("x = %v, want 3", entry["x"])
			}
		})
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("New() with unknown level should fail")
	}
	if _, err := New(Config{Level: "info", Format: "xml"}); err == nil {
		t.Error("New() with unknown format should fail")
	}
}

func TestNew_TextFormat(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "text")

	l.Info("rollover", Epoch(7))

	if out := buf.String(); !strings.Contains(out, "rollover") || !strings.Contains(out, "epoch=7") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestSetLevel(t *testing.T) {
	l, buf := newBufferLogger(t, "error", "json")

	l.Info("dropped")
	if buf.Len() > 0 {
		t.Fatal("Info should be filtered at error level")
	}

	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	l.Info("kept")
	if buf.Len() == 0 {
		t.Error("Info should be logged after level changed to debug")
	}
	if got := GetLevel(); got != "debug" {
		t.Errorf("GetLevel() = %q, want debug", got)
	}

	if err := SetLevel("chatty"); err == nil {
		t.Error("SetLevel() with unknown level should fail")
	}
	if got := GetLevel(); got != "debug" {
		t.Errorf("failed SetLevel changed level to %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"Error", slog.LevelError, false},
		{"bogus", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestComponent(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	Component(l, "coordinator").Info("started")

	if entry := decodeEntry(t, buf); entry["component"] != "coordinator" {
		t.Errorf("component = %v", entry["component"])
	}
	if Component(nil, "x") == nil {
		t.Error("Component(nil) should fall back to slog.Default()")
	}
}
