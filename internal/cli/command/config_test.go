package command

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yndnr/pixelsync/internal/cli/config"
)

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")

	if _, err := runCLIWithConfig(t, path, "config", "init"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := runCLIWithConfig(t, path, "config", "init"); err == nil {
		t.Error("second init without --force should fail")
	}
	if _, err := runCLIWithConfig(t, path, "config", "init", "--force"); err != nil {
		t.Errorf("init --force: %v", err)
	}

	out, err := runCLIWithConfig(t, path, "config", "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "current_profile: default") || !strings.Contains(out, config.DefaultServer) {
		t.Errorf("show output:\n%s", out)
	}
}

func TestConfigProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")

	_, err := runCLIWithConfig(t, path, "config", "set-profile",
		"--server", "https://canvas.example:5443", "--admin-token", "tok", "--insecure", "prod")
	if err != nil {
		t.Fatalf("set-profile: %v", err)
	}
	if _, err := runCLIWithConfig(t, path, "config", "use", "prod"); err != nil {
		t.Fatalf("use: %v", err)
	}
	if _, err := runCLIWithConfig(t, path, "config", "use", "missing"); err == nil {
		t.Error("use of unknown profile should fail")
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := config.Profile{Server: "https://canvas.example:5443", AdminToken: "tok", Insecure: true}
	if diff := cmp.Diff(want, cfg.Profiles["prod"]); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
	if cfg.CurrentProfile != "prod" {
		t.Errorf("CurrentProfile = %q", cfg.CurrentProfile)
	}

	out, err := runCLIWithConfig(t, path, "config", "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if strings.Contains(out, "tok\n") || !strings.Contains(out, "'****'") {
		t.Errorf("admin token not masked:\n%s", out)
	}
	out, err = runCLIWithConfig(t, path, "config", "show", "--show-secrets")
	if err != nil {
		t.Fatalf("show --show-secrets: %v", err)
	}
	if !strings.Contains(out, "admin_token: tok") {
		t.Errorf("admin token not shown:\n%s", out)
	}
}

func TestProfileUsedForRequests(t *testing.T) {
	m := newMockServer(t)
	m.reply("GET /api/v1/contributors", contributorsView{Contributors: []string{"x"}})
	m.reply("POST /admin/v1/epoch/check", checkEpochResult{})

	path := filepath.Join(t.TempDir(), "cli.yaml")
	cfg := config.Default()
	cfg.DefaultOutput = "json"
	cfg.Profiles["local"] = config.Profile{Server: m.URL, AdminToken: "from-profile"}
	if err := config.Save(cfg, path); err != nil {
		t.Fatal(err)
	}

	out, err := runCLIWithConfig(t, path, "--profile", "local", "contributors")
	if err != nil {
		t.Fatalf("contributors: %v", err)
	}
	if !strings.HasPrefix(out, "{") {
		t.Errorf("default_output json not applied:\n%s", out)
	}

	if _, err := runCLIWithConfig(t, path, "-p", "local", "admin", "check-epoch"); err != nil {
		t.Fatalf("check-epoch: %v", err)
	}
	if m.lastAuth != "Bearer from-profile" {
		t.Errorf("Authorization = %q", m.lastAuth)
	}

	if _, err := runCLIWithConfig(t, path, "-p", "local", "--admin-token", "flag", "admin", "check-epoch"); err != nil {
		t.Fatalf("check-epoch: %v", err)
	}
	if m.lastAuth != "Bearer flag" {
		t.Errorf("flag should override profile, Authorization = %q", m.lastAuth)
	}
}
