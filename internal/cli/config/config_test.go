package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.DefaultOutput != "table" {
		t.Errorf("DefaultOutput = %q, want table", cfg.DefaultOutput)
	}
	p, ok := cfg.Profile("")
	if !ok || p.Server != DefaultServer {
		t.Errorf("Profile(\"\") = %+v, %v", p, ok)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	if !strings.HasSuffix(path, filepath.Join(".pixelsync", "cli.yaml")) {
		t.Errorf("DefaultConfigPath() = %q", path)
	}
}

func TestProfile(t *testing.T) {
	cfg := &CLIConfig{
		CurrentProfile: "prod",
		Profiles: map[string]Profile{
			"prod":  {Server: "https://canvas.example.com", AdminToken: "t"},
			"empty": {},
		},
	}

	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"", "https://canvas.example.com", true},
		{"prod", "https://canvas.example.com", true},
		{"empty", DefaultServer, true},
		{"missing", DefaultServer, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := cfg.Profile(tt.name)
			if p.Server != tt.want || ok != tt.wantOK {
				t.Errorf("Profile(%q) = %+v, %v", tt.name, p, ok)
			}
		})
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cli.yaml")
	want := &CLIConfig{
		DefaultOutput:  "json",
		CurrentProfile: "local",
		Profiles: map[string]Profile{
			"local": {Server: "http://127.0.0.1:5080", AdminToken: "s3cret", Insecure: true},
		},
	}

	if err := Save(want, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	os.WriteFile(path, []byte("default_output: yaml\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultOutput != "yaml" || cfg.CurrentProfile != "default" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	os.WriteFile(path, []byte("profiles: [not, a, map]\n"), 0600)

	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
