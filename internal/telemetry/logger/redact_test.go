package logger

import (
	"errors"
	"testing"

	"github.com/yndnr/pixelsync/internal/core/domain"
)

func TestRedact_AdminToken(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	token := AdminTokenPrefix + "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklm"
	l.Info("admin request", "presented", token)

	if got := decodeEntry(t, buf)["presented"]; got != "pxadm_ABCD****" {
		t.Errorf("presented = %v, want masked token", got)
	}
}

func TestRedact_SensitiveKeys(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	for _, key := range []string{"password", "admin_token_hash", "client-secret", "Authorization"} {
		t.Run(key, func(t *testing.T) {
			buf.Reset()
			l.Info("test", key, "value")

			if got := decodeEntry(t, buf)[key]; got != redactedValue {
				t.Errorf("%s = %v, want %s", key, got, redactedValue)
			}
		})
	}
}

func TestRedact_Groups(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	l.WithGroup("security").Info("config", "admin_token_hash", "$2a$10$abc")

	group, ok := decodeEntry(t, buf)["security"].(map[string]any)
	if !ok {
		t.Fatalf("security group missing: %s", buf.String())
	}
	if group["admin_token_hash"] != redactedValue {
		t.Errorf("admin_token_hash = %v", group["admin_token_hash"])
	}
}

func TestRedact_NormalValues(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	l.Info("write", "session_id", "01HX3Q", "color", "#ff0000", "contributor", "0xabc", "tokens_issued", "3")

	entry := decodeEntry(t, buf)
	for key, want := range map[string]string{
		"session_id":    "01HX3Q",
		"color":         "#ff0000",
		"contributor":   "0xabc",
		"tokens_issued": "3",
	} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %s", key, entry[key], want)
		}
	}
}

func TestRedactString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{AdminTokenPrefix + "ABCDEFGHIJKLMNOP", "pxadm_ABCD****"},
		{AdminTokenPrefix + "ABCDEF", "pxadm_****"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := RedactString(tt.input); got != tt.expected {
			t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestIsSensitive(t *testing.T) {
	if !IsSensitiveKey("ADMIN_TOKEN") {
		t.Error("ADMIN_TOKEN should be sensitive")
	}
	if IsSensitiveKey("epoch_number") {
		t.Error("epoch_number should not be sensitive")
	}
	if !IsSensitiveValue(AdminTokenPrefix + "x") {
		t.Error("admin token value should be sensitive")
	}
	if IsSensitiveValue("#ffffff") {
		t.Error("color should not be sensitive")
	}
}

func TestAttrs(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	l.Info("painted",
		Epoch(4),
		Session("s1"),
		Cell(domain.Cell{X: 1, Y: 2, Color: "#00ff00"}),
		Err(domain.ErrInvalidColor.WithDetails(`"red"`)),
	)

	entry := decodeEntry(t, buf)
	if entry["epoch"] != float64(4) || entry["session_id"] != "s1" {
		t.Errorf("epoch/session = %v/%v", entry["epoch"], entry["session_id"])
	}
	cell, _ := entry["cell"].(map[string]any)
	if cell["x"] != float64(1) || cell["y"] != float64(2) || cell["color"] != "#00ff00" {
		t.Errorf("cell = %v", entry["cell"])
	}
	errGroup, _ := entry["error"].(map[string]any)
	if errGroup["code"] != "PX-CELL-4002" {
		t.Errorf("error = %v", entry["error"])
	}

	buf.Reset()
	l.Info("plain", Err(errors.New("disk full")), Err(nil))
	if got := decodeEntry(t, buf)["error"]; got != "disk full" {
		t.Errorf("error = %v", got)
	}
}
