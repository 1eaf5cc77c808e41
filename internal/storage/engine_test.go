package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yndnr/pixelsync/internal/core/domain"
	"github.com/yndnr/pixelsync/internal/storage/wal"
)

func newTestEngine(t *testing.T, dir string) *Engine {
	t.Helper()
	cfg := DefaultConfig(dir)
	cfg.Grid = domain.Grid{Width: 10, Height: 10}
	cfg.WAL.SyncMode = wal.SyncModeSync
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e
}

func reopen(t *testing.T, e *Engine, dir string) (*Engine, *RestoreResult) {
	t.Helper()
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	next := newTestEngine(t, dir)
	t.Cleanup(func() { next.Close() })
	res, err := next.Restore(context.Background())
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	return next, res
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/tmp/test-data")

	if cfg.DataDir != "/tmp/test-data" {
		t.Errorf("DataDir = %s, want /tmp/test-data", cfg.DataDir)
	}
	if cfg.Grid != domain.DefaultGrid() {
		t.Errorf("Grid = %+v, want default", cfg.Grid)
	}
	if cfg.WAL.Dir != "/tmp/test-data/wal" {
		t.Errorf("WAL.Dir = %s", cfg.WAL.Dir)
	}
}

func TestEngine_New(t *testing.T) {
	t.Run("missing data_dir", func(t *testing.T) {
		if _, err := New(Config{}); err == nil {
			t.Error("expected error for missing data_dir")
		}
	})

	t.Run("defaults filled", func(t *testing.T) {
		e, err := New(Config{DataDir: t.TempDir()})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer e.Close()
		if e.Grid() != domain.DefaultGrid() {
			t.Errorf("Grid = %+v", e.Grid())
		}
	})
}

func TestEngine_RestoreEmpty(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	defer e.Close()

	res, err := e.Restore(context.Background())
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if res.Stamped || res.Cells != 0 || res.SnapshotID != "" {
		t.Errorf("unexpected result for empty dir: %+v", res)
	}
}

func TestEngine_ApplyValidation(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	defer e.Close()

	if _, err := e.Apply(domain.Cell{X: 10, Y: 0, Color: "#fff"}, ""); !errors.Is(err, domain.ErrInvalidCoordinate) {
		t.Errorf("out of bounds err = %v", err)
	}
	if _, err := e.Apply(domain.Cell{X: 1, Y: 1, Color: "red"}, ""); !errors.Is(err, domain.ErrInvalidColor) {
		t.Errorf("bad color err = %v", err)
	}
	if e.Len() != 0 {
		t.Errorf("Len = %d after rejected writes, want 0", e.Len())
	}

	got, err := e.Apply(domain.Cell{X: 1, Y: 1, Color: "#ABC"}, "0xabc")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got.Color != "#aabbcc" {
		t.Errorf("Color = %s, want #aabbcc", got.Color)
	}
}

func TestEngine_ApplyBatch(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	defer e.Close()

	cells := []domain.Cell{
		{X: 0, Y: 0, Color: "#ff0000"},
		{X: 1, Y: 0, Color: "#00ff00"},
		{X: 99, Y: 0, Color: "#0000ff"},
		{X: 2, Y: 0, Color: "nope"},
		{X: 3, Y: 0, Color: "#000"},
	}
	applied, errs := e.ApplyBatch(cells, "")

	if len(applied) != 3 {
		t.Fatalf("applied %d cells, want 3", len(applied))
	}
	if !errors.Is(errs[2], domain.ErrInvalidCoordinate) || !errors.Is(errs[3], domain.ErrInvalidColor) {
		t.Errorf("errs = %v", errs)
	}
	for _, i := range []int{0, 1, 4} {
		if errs[i] != nil {
			t.Errorf("errs[%d] = %v, want nil", i, errs[i])
		}
	}
}

func TestEngine_RecoveryFromWAL(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, dir)

	e.Stamp(3)
	e.Apply(domain.Cell{X: 3, Y: 4, Color: "#ff0000"}, "0xaaa")
	e.Apply(domain.Cell{X: 3, Y: 4, Color: "#00ff00"}, "0xbbb")
	e.ApplyBatch([]domain.Cell{{X: 0, Y: 0, Color: "#111"}, {X: 1, Y: 0, Color: "#222"}}, "")
	want := e.Snapshot()

	next, res := reopen(t, e, dir)

	if !res.Stamped || res.Epoch != 3 {
		t.Errorf("epoch = %d stamped = %v, want 3 true", res.Epoch, res.Stamped)
	}
	if res.Replayed != 4 {
		t.Errorf("Replayed = %d, want 4", res.Replayed)
	}
	if diff := cmp.Diff(want, next.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"0xaaa", "0xbbb"}, next.Contributors()); diff != "" {
		t.Errorf("contributors mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_PersistRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, dir)
	ctx := context.Background()

	e.Stamp(1)
	e.Apply(domain.Cell{X: 5, Y: 5, Color: "#123456"}, "")
	if _, err := e.Checkpoint(ctx); err != nil {
		t.Fatalf("Checkpoint failed: %v", err)
	}
	e.Apply(domain.Cell{X: 6, Y: 5, Color: "#654321"}, "")
	want := e.Snapshot()

	next, res := reopen(t, e, dir)

	if res.SnapshotID == "" {
		t.Error("expected restore from snapshot")
	}
	if res.Replayed != 1 {
		t.Errorf("Replayed = %d, want 1 (only the write after the snapshot)", res.Replayed)
	}
	if diff := cmp.Diff(want, next.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_CheckpointIdempotent(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	defer e.Close()
	ctx := context.Background()

	e.Apply(domain.Cell{X: 1, Y: 1, Color: "#fff"}, "")
	first, err := e.Checkpoint(ctx)
	if err != nil {
		t.Fatalf("Checkpoint failed: %v", err)
	}
	second, err := e.Checkpoint(ctx)
	if err != nil {
		t.Fatalf("second Checkpoint failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("unchanged canvas produced a new snapshot: %s vs %s", first.ID, second.ID)
	}

	e.Apply(domain.Cell{X: 2, Y: 1, Color: "#fff"}, "")
	third, err := e.Checkpoint(ctx)
	if err != nil {
		t.Fatalf("third Checkpoint failed: %v", err)
	}
	if third.ID == first.ID || third.CellCount != 2 {
		t.Errorf("third snapshot = %+v", third)
	}
}

func TestEngine_CheckpointCanceled(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Checkpoint(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Checkpoint err = %v, want context.Canceled", err)
	}
}

func TestEngine_ClearSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, dir)

	e.Stamp(0)
	e.Apply(domain.Cell{X: 1, Y: 1, Color: "#fff"}, "0xabc")
	if n := e.Clear(); n != 1 {
		t.Errorf("Clear = %d, want 1", n)
	}

	next, res := reopen(t, e, dir)
	if res.Cells != 0 {
		t.Errorf("Cells = %d after replayed clear, want 0", res.Cells)
	}
	if len(next.Contributors()) != 1 {
		t.Error("clear should keep the epoch's contributors")
	}
}

func TestEngine_RotateJournalsArchive(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, dir)
	closedAt := time.Date(2024, 4, 5, 0, 1, 0, 0, time.UTC)

	if rec := e.Rotate(0, closedAt); rec != nil {
		t.Errorf("rotating an unstamped canvas returned %+v", rec)
	}
	e.Apply(domain.Cell{X: 3, Y: 4, Color: "#ff0000"}, "0xabc")

	rec := e.Rotate(1, closedAt)
	if rec == nil || rec.EpochNumber != 0 || len(rec.Cells) != 1 {
		t.Fatalf("archive = %+v", rec)
	}
	if e.Len() != 0 {
		t.Errorf("Len = %d after rotate, want 0", e.Len())
	}

	next, res := reopen(t, e, dir)
	if res.Epoch != 1 || next.Len() != 0 {
		t.Errorf("restored epoch %d with %d cells, want 1 and 0", res.Epoch, next.Len())
	}
	if len(res.Archives) != 1 {
		t.Fatalf("Archives = %d, want 1", len(res.Archives))
	}
	if diff := cmp.Diff(rec, res.Archives[0]); diff != "" {
		t.Errorf("journaled archive mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_SnapshotDropsOutOfGridCells(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.Grid = domain.Grid{Width: 20, Height: 20}
	big, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	big.Apply(domain.Cell{X: 15, Y: 15, Color: "#fff"}, "")
	big.Apply(domain.Cell{X: 1, Y: 1, Color: "#fff"}, "")
	if _, err := big.Checkpoint(context.Background()); err != nil {
		t.Fatalf("Checkpoint failed: %v", err)
	}

	small, res := reopen(t, big, dir)
	if res.Dropped != 1 || small.Len() != 1 {
		t.Errorf("Dropped = %d Len = %d, want 1 and 1", res.Dropped, small.Len())
	}
}

func TestEngine_OnErrorAfterClose(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	cfg.WAL.SyncMode = wal.SyncModeSync
	var ops []string
	cfg.OnError = func(op string, err error) { ops = append(ops, op) }

	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := e.Apply(domain.Cell{X: 0, Y: 0, Color: "#fff"}, ""); err != nil {
		t.Errorf("journal failure should not reject the write: %v", err)
	}
	if len(ops) != 1 || ops[0] != OpJournal {
		t.Errorf("OnError ops = %v, want [journal]", ops)
	}
	if err := e.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}
