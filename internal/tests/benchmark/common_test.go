package benchmark

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/pixelsync/internal/core/domain"
)

// CellCounts are canvas fill levels for benchmarks; 6400 fills the
// default 80x80 grid.
var CellCounts = []int{100, 1600, 6400}

// SubscriberCounts are the session counts for broadcast benchmarks.
var SubscriberCounts = []int{0, 10, 100, 1000}

var palette = []string{"#000000", "#ffffff", "#ff0000", "#00ff00", "#0000ff", "#ffff00"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newContributor returns a unique contributor id.
func newContributor() string {
	return "0x" + strings.ToLower(ulid.Make().String())
}

// randomCell returns a valid cell on grid.
func randomCell(rng *rand.Rand, grid domain.Grid) domain.Cell {
	return domain.Cell{
		X:     rng.Intn(grid.Width),
		Y:     rng.Intn(grid.Height),
		Color: palette[rng.Intn(len(palette))],
	}
}

// filledCells returns count distinct cells in row-major order.
func filledCells(grid domain.Grid, count int) []domain.Cell {
	if count > grid.Size() {
		count = grid.Size()
	}
	cells := make([]domain.Cell, count)
	for i := range cells {
		cells[i] = domain.Cell{X: i % grid.Width, Y: i / grid.Width, Color: palette[i%len(palette)]}
	}
	return cells
}

// fixedClock returns a clock in the middle of epoch 10 of the default
// schedule, so benchmarks never cross a rollover.
func fixedClock() func() time.Time {
	s := domain.DefaultSchedule()
	t := s.Epoch(10).Start.Add(s.Duration / 2)
	return func() time.Time { return t }
}

// reportMemory reports heap usage after a GC.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithCellCounts runs benchFn once per fill level.
func runWithCellCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("cells_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
