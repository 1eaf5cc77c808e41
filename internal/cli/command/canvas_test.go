package command

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yndnr/pixelsync/internal/cli/connection"
	"github.com/yndnr/pixelsync/internal/core/domain"
)

func TestEpochCommand(t *testing.T) {
	m := newMockServer(t)
	next := time.Date(2024, 4, 5, 0, 1, 0, 0, time.UTC)
	m.reply("GET /api/v1/epoch", domain.Boundaries{
		EpochNumber:     7,
		LastReset:       next.Add(-72 * time.Hour),
		NextReset:       next,
		TimeRemainingMs: 1000,
	})
	m.reply("GET /api/v1/epoch/countdown", domain.Countdown{Days: 1, Hours: 2, Minutes: 3, Seconds: 4})

	out, err := runCLI(t, "--server", m.URL, "-o", "json", "epoch")
	if err != nil {
		t.Fatalf("epoch: %v", err)
	}
	var b domain.Boundaries
	if err := json.Unmarshal([]byte(out), &b); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if b.EpochNumber != 7 || !b.NextReset.Equal(next) {
		t.Errorf("boundaries = %+v", b)
	}

	out, err = runCLI(t, "--server", m.URL, "epoch", "--countdown")
	if err != nil {
		t.Fatalf("epoch --countdown: %v", err)
	}
	for _, want := range []string{"days", "hours", "4"} {
		if !strings.Contains(out, want) {
			t.Errorf("countdown output missing %q:\n%s", want, out)
		}
	}
}

func TestCanvasShow(t *testing.T) {
	m := newMockServer(t)
	m.reply("GET /api/v1/canvas", canvasView{
		EpochNumber: 3,
		Cells: []domain.Cell{
			{X: 0, Y: 0, Color: "#ff0000"},
			{X: 1, Y: 0, Color: "#ff0000"},
			{X: 2, Y: 5, Color: "#00ff00"},
		},
	})

	out, err := runCLI(t, "--server", m.URL, "canvas")
	if err != nil {
		t.Fatalf("canvas: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if got := strings.Fields(lines[1]); !cmp.Equal(got, []string{"3", "3", "2"}) {
		t.Errorf("summary row = %v", got)
	}

	out, err = runCLI(t, "--server", m.URL, "--wide", "canvas", "show")
	if err != nil {
		t.Fatalf("canvas show: %v", err)
	}
	if !strings.Contains(out, "#ff0000 (2)") {
		t.Errorf("wide summary missing top color:\n%s", out)
	}

	out, err = runCLI(t, "--server", m.URL, "canvas", "--colors")
	if err != nil {
		t.Fatalf("canvas --colors: %v", err)
	}
	lines = strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[1], "#ff0000") {
		t.Errorf("colors output:\n%s", out)
	}

	out, err = runCLI(t, "--server", m.URL, "canvas", "show", "--cells")
	if err != nil {
		t.Fatalf("canvas show --cells: %v", err)
	}
	if n := len(strings.Split(strings.TrimSpace(out), "\n")); n != 4 {
		t.Errorf("cells output has %d lines:\n%s", n, out)
	}

	out, err = runCLI(t, "--server", m.URL, "-o", "json", "canvas")
	if err != nil {
		t.Fatalf("canvas -o json: %v", err)
	}
	var v canvasView
	if err := json.Unmarshal([]byte(out), &v); err != nil || len(v.Cells) != 3 {
		t.Errorf("json canvas = %+v, %v", v, err)
	}
}

func TestCanvasPaint(t *testing.T) {
	m := newMockServer(t)
	var got paintRequest
	m.handle("POST /api/v1/pixels", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		writeEnvelope(w, http.StatusOK, "OK", "Success", domain.Cell{X: got.X, Y: got.Y, Color: "#aabbcc"})
	})

	out, err := runCLI(t, "--server", m.URL, "canvas", "paint", "--contributor", "0xabc", "4", "5", "#ABC")
	if err != nil {
		t.Fatalf("paint: %v", err)
	}
	want := paintRequest{X: 4, Y: 5, Color: "#ABC", Contributor: "0xabc"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out, "#aabbcc") {
		t.Errorf("output missing normalized color:\n%s", out)
	}
}

func TestCanvasPaint_Errors(t *testing.T) {
	m := newMockServer(t)
	m.handle("POST /api/v1/pixels", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusBadRequest, "PX-CELL-4001", "invalid coordinate", nil)
	})

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing args", []string{"1", "2"}, "usage"},
		{"bad x", []string{"a", "2", "#fff"}, "invalid x"},
		{"bad y", []string{"1", "b", "#fff"}, "invalid y"},
		{"server rejects", []string{"100", "2", "#fff"}, "PX-CELL-4001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--server", m.URL, "canvas", "paint"}, tt.args...)
			_, err := runCLI(t, args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}

	_, err := runCLI(t, "--server", m.URL, "canvas", "paint", "100", "2", "#fff")
	var apiErr *connection.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Errorf("expected APIError with status 400, got %v", err)
	}
}

func TestArchiveCommands(t *testing.T) {
	m := newMockServer(t)
	closed := time.Date(2024, 4, 5, 0, 1, 0, 0, time.UTC)
	m.reply("GET /api/v1/archives", archiveList{
		Items: []archiveItem{
			{ArchiveSummary: domain.ArchiveSummary{EpochNumber: 1, CellCount: 10, Contributors: 2, ClosedAt: closed}, Ref: "badger:archive/1"},
			{ArchiveSummary: domain.ArchiveSummary{EpochNumber: 2, CellCount: 0, ClosedAt: closed.Add(72 * time.Hour)}, Ref: "badger:archive/2"},
		},
		Total: 2,
	})
	m.reply("GET /api/v1/archives/1", domain.ArchiveRecord{
		EpochNumber:  1,
		Cells:        []domain.Cell{{X: 1, Y: 1, Color: "#000000"}},
		Contributors: []string{"a", "b"},
		ClosedAt:     closed,
	})
	m.handle("GET /api/v1/archives/9", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, "PX-ARCH-4040", "archive not found", nil)
	})

	out, err := runCLI(t, "--server", m.URL, "archive", "list")
	if err != nil {
		t.Fatalf("archive list: %v", err)
	}
	if strings.Contains(out, "badger:archive/1") {
		t.Errorf("ref column should only show with --wide:\n%s", out)
	}
	if n := len(strings.Split(strings.TrimSpace(out), "\n")); n != 3 {
		t.Errorf("list has %d lines:\n%s", n, out)
	}

	out, err = runCLI(t, "--server", m.URL, "-w", "archives", "ls")
	if err != nil {
		t.Fatalf("archives ls -w: %v", err)
	}
	if !strings.Contains(out, "badger:archive/1") {
		t.Errorf("wide list missing ref:\n%s", out)
	}

	out, err = runCLI(t, "--server", m.URL, "archive", "get", "1")
	if err != nil {
		t.Fatalf("archive get: %v", err)
	}
	if fields := strings.Fields(strings.Split(strings.TrimSpace(out), "\n")[1]); fields[0] != "1" || fields[1] != "1" || fields[2] != "2" {
		t.Errorf("summary row = %v", fields)
	}

	out, err = runCLI(t, "--server", m.URL, "-o", "yaml", "archive", "get", "1")
	if err != nil {
		t.Fatalf("archive get -o yaml: %v", err)
	}
	if !strings.Contains(out, "color: '#000000'") {
		t.Errorf("yaml record missing cell:\n%s", out)
	}

	if _, err := runCLI(t, "--server", m.URL, "archive", "get", "9"); err == nil || !strings.Contains(err.Error(), "PX-ARCH-4040") {
		t.Errorf("missing archive error = %v", err)
	}
	if _, err := runCLI(t, "--server", m.URL, "archive", "get", "x"); err == nil {
		t.Error("expected error for non-numeric epoch")
	}
}

func TestContributorsCommand(t *testing.T) {
	m := newMockServer(t)
	m.reply("GET /api/v1/contributors", contributorsView{EpochNumber: 4, Contributors: []string{"0xb", "0xa"}})

	out, err := runCLI(t, "--server", m.URL, "--no-headers", "contributors")
	if err != nil {
		t.Fatalf("contributors: %v", err)
	}
	if out != "0xb\n0xa\n" {
		t.Errorf("output = %q", out)
	}

	out, err = runCLI(t, "--server", m.URL, "-o", "json", "contributors")
	if err != nil {
		t.Fatalf("contributors -o json: %v", err)
	}
	if !strings.Contains(out, `"epoch_number": 4`) {
		t.Errorf("json output missing epoch:\n%s", out)
	}
}

func TestSummarize(t *testing.T) {
	got := summarize(canvasView{Cells: []domain.Cell{
		{Color: "#bbbbbb"}, {Color: "#aaaaaa"}, {Color: "#cccccc"}, {Color: "#cccccc"},
	}})
	want := []colorCount{{"#cccccc", 2}, {"#aaaaaa", 1}, {"#bbbbbb", 1}}
	if diff := cmp.Diff(want, got.colors); diff != "" {
		t.Errorf("colors mismatch (-want +got):\n%s", diff)
	}
}
