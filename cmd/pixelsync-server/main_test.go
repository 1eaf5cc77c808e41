package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakeCounter struct {
	sessions int
	epoch    int64
	cells    int
}

func (f fakeCounter) Sessions() int      { return f.sessions }
func (f fakeCounter) ActiveEpoch() int64 { return f.epoch }
func (f fakeCounter) Len() int           { return f.cells }

func TestLiveStats(t *testing.T) {
	f := fakeCounter{sessions: 3, epoch: 12, cells: 40}
	got := liveStats{coord: f, canvas: f}.Stats()
	if got.Sessions != 3 || got.Epoch != 12 || got.Cells != 40 {
		t.Errorf("Stats() = %+v", got)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "server.yaml")
	yaml := "canvas:\n  width: 32\n  height: 16\nlog:\n  level: debug\n"
	if err := os.WriteFile(file, []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PIXELSYNC_LOG__LEVEL", "warn")

	cfg, loader, err := loadConfig(options{
		ConfigFile: file,
		Overrides: map[string]any{
			"storage.data_dir": filepath.Join(dir, "data"),
			"server.http.addr": "127.0.0.1:9999",
		},
	})
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if loader.FilePath() != file {
		t.Errorf("FilePath() = %q", loader.FilePath())
	}
	if cfg.Canvas.Width != 32 || cfg.Canvas.Height != 16 {
		t.Errorf("canvas = %+v, want 32x16 from file", cfg.Canvas)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q, want env value", cfg.Log.Level)
	}
	if cfg.Server.HTTP.Addr != "127.0.0.1:9999" {
		t.Errorf("addr = %q, want override", cfg.Server.HTTP.Addr)
	}
	if cfg.Canvas.MaxBatch == 0 {
		t.Error("defaults should survive layering")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, _, err := loadConfig(options{Overrides: map[string]any{
		"storage.data_dir": t.TempDir(),
		"canvas.width":     0,
	}})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestApp_CheckConfig(t *testing.T) {
	args := []string{"pixelsync-server", "--data-dir", t.TempDir(), "--log-level", "error", "--check-config"}
	if err := newApp().Run(args); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestRun_ServesAndStops(t *testing.T) {
	dataDir := t.TempDir()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, options{
			Listener: ln,
			Overrides: map[string]any{
				"storage.data_dir": dataDir,
				"log.level":        "error",
			},
		})
	}()

	waitHealthy(t, "http://"+addr+"/health")

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	var first struct {
		Event string `json:"event"`
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read first event: %v", err)
	}
	if first.Event != "initial_snapshot" {
		t.Errorf("first event = %q, want initial_snapshot", first.Event)
	}
	conn.WriteJSON(map[string]any{
		"event": "write",
		"data":  map[string]any{"x": 1, "y": 2, "color": "#ff0000"},
	})
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var ev struct {
			Event string `json:"event"`
		}
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		if ev.Event == "write_accepted" {
			break
		}
	}
	conn.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	entries, err := os.ReadDir(filepath.Join(dataDir, "snapshots"))
	if err != nil || len(entries) == 0 {
		t.Errorf("expected a final snapshot, got %v entries (err %v)", len(entries), err)
	}
}

func waitHealthy(t *testing.T, url string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			var body map[string]any
			json.NewDecoder(resp.Body).Decode(&body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("server did not become healthy")
}
