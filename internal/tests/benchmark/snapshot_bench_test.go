package benchmark

import (
	"testing"

	"github.com/yndnr/pixelsync/internal/core/domain"
	"github.com/yndnr/pixelsync/internal/storage/memory"
	"github.com/yndnr/pixelsync/internal/storage/snapshot"
)

func snapshotState(count int) memory.State {
	return memory.State{
		Epoch:        10,
		Stamped:      true,
		Cells:        filledCells(domain.DefaultGrid(), count),
		Contributors: []string{newContributor(), newContributor()},
	}
}

// BenchmarkSnapshotCreate benchmarks writing snapshots of a filled canvas.
func BenchmarkSnapshotCreate(b *testing.B) {
	runWithCellCounts(b, CellCounts, func(b *testing.B, count int) {
		mgr, err := snapshot.NewManager(snapshot.Config{Dir: b.TempDir(), RetentionCount: 2})
		if err != nil {
			b.Fatalf("NewManager: %v", err)
		}
		state := snapshotState(count)

		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			info, err := mgr.Create(domain.DefaultGrid(), state, uint64(i))
			if err != nil {
				b.Fatalf("Create: %v", err)
			}
			b.SetBytes(info.Size)

			b.StopTimer()
			mgr.Prune()
			b.StartTimer()
		}
	})
}

// BenchmarkSnapshotLoad benchmarks loading the newest snapshot.
func BenchmarkSnapshotLoad(b *testing.B) {
	runWithCellCounts(b, CellCounts, func(b *testing.B, count int) {
		mgr, err := snapshot.NewManager(snapshot.DefaultConfig(b.TempDir()))
		if err != nil {
			b.Fatalf("NewManager: %v", err)
		}
		if _, err := mgr.Create(domain.DefaultGrid(), snapshotState(count), 0); err != nil {
			b.Fatalf("Create: %v", err)
		}

		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			state, _, err := mgr.Load()
			if err != nil {
				b.Fatalf("Load: %v", err)
			}
			if len(state.Cells) != count {
				b.Fatalf("loaded %d cells, want %d", len(state.Cells), count)
			}
		}
	})
}
