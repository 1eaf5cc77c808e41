package wal

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/yndnr/pixelsync/internal/core/domain"
)

func syncConfig(dir string) Config {
	cfg := DefaultConfig(dir)
	cfg.SyncMode = SyncModeSync
	return cfg
}

func readAll(t *testing.T, dir string, from uint64) []*Entry {
	t.Helper()
	r, err := NewReader(dir)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()
	if err := r.Seek(from); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	entries, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return entries
}

var ignoreTimestamp = cmpopts.IgnoreFields(Entry{}, "Timestamp")

func TestWriterReader_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(syncConfig(dir))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	rec := &domain.ArchiveRecord{EpochNumber: 2, Cells: []domain.Cell{{X: 1, Y: 1, Color: "#ffffff"}}}
	want := []*Entry{
		NewStampEntry(2),
		NewPaintEntry(2, []domain.Cell{{X: 1, Y: 1, Color: "#ffffff"}}, "0xabc"),
		NewClearEntry(2),
		NewRotateEntry(3, rec),
	}
	for i, e := range want {
		if err := w.Append(e); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := readAll(t, dir, 0)
	if diff := cmp.Diff(want, got, ignoreTimestamp, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestWriter_AppendRejectsInvalid(t *testing.T) {
	w, err := NewWriter(syncConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	defer w.Close()

	if err := w.Append(&Entry{}); !errors.Is(err, ErrInvalidEntryType) {
		t.Errorf("Append(unspecified) error = %v", err)
	}
	if err := w.Append(NewPaintEntry(0, nil, "")); err == nil {
		t.Error("Append(empty paint) should fail")
	}
	if err := w.Append(nil); err == nil {
		t.Error("Append(nil) should fail")
	}
}

func TestReader_SeekSkipsCoveredEntries(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(syncConfig(dir))
	if err != nil {
		t.Fatal(err)
	}

	w.Append(NewPaintEntry(0, []domain.Cell{{X: 0, Y: 0, Color: "#000000"}}, ""))
	offset := w.CurrentOffset()
	w.Append(NewPaintEntry(0, []domain.Cell{{X: 1, Y: 0, Color: "#111111"}}, ""))
	end := w.CurrentOffset()
	w.Close()

	got := readAll(t, dir, offset)
	if len(got) != 1 || got[0].Cells[0].X != 1 {
		t.Fatalf("Seek(offset) entries = %+v", got)
	}
	if got := readAll(t, dir, end); len(got) != 0 {
		t.Errorf("Seek(end) returned %d entries", len(got))
	}
}

func TestWriter_BatchModeFlushesOnClose(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.BatchCount = 1000
	cfg.SyncInterval = time.Hour
	w, err := NewWriter(cfg)
	if err != nil {
		t.Fatal(err)
	}

	before := w.CurrentOffset()
	w.Append(NewClearEntry(1))
	if w.CurrentOffset() != before {
		t.Error("batch mode should buffer before the threshold")
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if w.CurrentOffset() == before {
		t.Error("Flush should advance the offset")
	}
	w.Append(NewClearEntry(2))
	w.Close()

	if got := readAll(t, dir, 0); len(got) != 2 {
		t.Errorf("got %d entries, want 2", len(got))
	}
}

func TestWriter_RotatesSegments(t *testing.T) {
	dir := t.TempDir()
	cfg := syncConfig(dir)
	cfg.MaxEntryCount = 2
	w, err := NewWriter(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := w.Append(NewStampEntry(int64(i))); err != nil {
			t.Fatal(err)
		}
	}
	w.Close()

	segs, _ := listSegments(dir)
	if len(segs) != 3 {
		t.Fatalf("segments = %d, want 3", len(segs))
	}
	got := readAll(t, dir, 0)
	for i, e := range got {
		if e.Epoch != int64(i) {
			t.Fatalf("entry %d epoch = %d", i, e.Epoch)
		}
	}
	if len(got) != 5 {
		t.Errorf("got %d entries, want 5", len(got))
	}
}

func TestReader_ToleratesTornTail(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(syncConfig(dir))
	if err != nil {
		t.Fatal(err)
	}
	w.Append(NewStampEntry(7))
	w.Append(NewClearEntry(7))
	// Leave the segment unsealed, as after a crash, then tear the last frame.
	w.mu.Lock()
	path := w.file.Name()
	w.file.Close()
	w.file = nil
	w.closed = true
	close(w.stopCh)
	w.mu.Unlock()

	info, _ := os.Stat(path)
	if err := os.Truncate(path, info.Size()-3); err != nil {
		t.Fatal(err)
	}

	got := readAll(t, dir, 0)
	if len(got) != 1 || got[0].OpType != OpTypeStamp {
		t.Fatalf("entries = %+v, want only the intact stamp", got)
	}

	// A new writer starts a fresh segment after the torn one.
	w2, err := NewWriter(syncConfig(dir))
	if err != nil {
		t.Fatal(err)
	}
	w2.Append(NewStampEntry(8))
	w2.Close()
	if got := readAll(t, dir, 0); len(got) != 2 || got[1].Epoch != 8 {
		t.Fatalf("entries after restart = %+v", got)
	}
}

func TestReader_CorruptedChecksum(t *testing.T) {
	dir := t.TempDir()
	w, _ := NewWriter(syncConfig(dir))
	w.Append(NewStampEntry(1))
	w.Close()

	path := filepath.Join(dir, formatSegmentFilename(1))
	data, _ := os.ReadFile(path)
	data[MagicBytesSize+headerSize+2] ^= 0xff
	os.WriteFile(path, data, 0600)

	r, _ := NewReader(dir)
	defer r.Close()
	if _, err := r.Read(); !errors.Is(err, io.EOF) {
		t.Errorf("Read() error = %v, want EOF after skipping corrupted frame", err)
	}
}

func TestCompactor(t *testing.T) {
	dir := t.TempDir()
	cfg := syncConfig(dir)
	cfg.MaxEntryCount = 1
	w, _ := NewWriter(cfg)
	for i := 0; i < 5; i++ {
		w.Append(NewStampEntry(int64(i)))
	}
	offset := w.CurrentOffset()
	w.Close()

	segs, _ := listSegments(dir)
	if len(segs) != 5 {
		t.Fatalf("segments = %d, want 5", len(segs))
	}

	removed, err := NewCompactor(dir, WithRetainCount(1)).Compact(offset)
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if removed != 4 {
		t.Errorf("removed = %d, want 4", removed)
	}
	if got := readAll(t, dir, offset); len(got) != 0 {
		t.Errorf("entries after compacted offset = %d", len(got))
	}

	size, err := NewCompactor(dir).TotalSize()
	if err != nil || size == 0 {
		t.Errorf("TotalSize() = %d, %v", size, err)
	}
}

func TestCompactor_RetainsMinimum(t *testing.T) {
	dir := t.TempDir()
	cfg := syncConfig(dir)
	cfg.MaxEntryCount = 1
	w, _ := NewWriter(cfg)
	for i := 0; i < 3; i++ {
		w.Append(NewStampEntry(int64(i)))
	}
	offset := w.CurrentOffset()
	w.Close()

	removed, _ := NewCompactor(dir, WithRetainCount(3)).Compact(offset)
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
}
