package memory

import (
	"sync"
	"time"

	"github.com/yndnr/pixelsync/internal/core/domain"
)

// State is a point-in-time copy of the canvas.
type State struct {
	// Epoch labels the cells. Valid only when Stamped is true.
	Epoch        int64
	Stamped      bool
	Cells        []domain.Cell
	Contributors []string
}

// Canvas is the authoritative cell set.
type Canvas struct {
	mu sync.RWMutex

	grid         domain.Grid
	cells        map[domain.Point]string
	contributors *ContributorSet

	epoch   int64
	stamped bool
	version uint64
}

// NewCanvas creates an empty, unstamped canvas for the grid.
func NewCanvas(grid domain.Grid) *Canvas {
	return &Canvas{
		grid:         grid,
		cells:        make(map[domain.Point]string),
		contributors: NewContributorSet(),
	}
}

// Grid returns the canvas bounds.
func (c *Canvas) Grid() domain.Grid {
	return c.grid
}

// Apply validates and stores a cell. The returned cell carries the
// normalized color. Validation happens before the lock is taken, so a
// rejected write leaves the canvas untouched.
func (c *Canvas) Apply(cell domain.Cell, contributor string) (domain.Cell, error) {
	valid, err := c.grid.Validate(cell)
	if err != nil {
		return domain.Cell{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cells[valid.Point()] = valid.Color
	c.contributors.Add(contributor)
	c.version++
	return valid, nil
}

// Snapshot returns a sorted copy of every cell.
func (c *Canvas) Snapshot() []domain.Cell {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Canvas) snapshotLocked() []domain.Cell {
	out := make([]domain.Cell, 0, len(c.cells))
	for p, color := range c.cells {
		out = append(out, domain.Cell{X: p.X, Y: p.Y, Color: color})
	}
	domain.SortCells(out)
	return out
}

// State returns the full canvas state including its epoch label.
func (c *Canvas) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{
		Epoch:        c.epoch,
		Stamped:      c.stamped,
		Cells:        c.snapshotLocked(),
		Contributors: c.contributors.Items(),
	}
}

// Clear removes every cell. Contributors and the epoch label survive.
// It returns the number of cells removed.
func (c *Canvas) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.cells)
	c.cells = make(map[domain.Point]string)
	c.version++
	return n
}

// Rotate captures the archive record of the labelled epoch, empties the
// canvas and relabels it with next, all under one lock. An unstamped
// canvas is stamped without producing a record.
func (c *Canvas) Rotate(next int64, closedAt time.Time) *domain.ArchiveRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rec *domain.ArchiveRecord
	if c.stamped {
		rec = &domain.ArchiveRecord{
			EpochNumber:  c.epoch,
			Cells:        c.snapshotLocked(),
			Contributors: c.contributors.Items(),
			ClosedAt:     closedAt.UTC(),
		}
	}

	c.cells = make(map[domain.Point]string)
	c.contributors.Reset()
	c.epoch = next
	c.stamped = true
	c.version++
	return rec
}

// Stamp relabels the canvas without touching its cells.
func (c *Canvas) Stamp(epoch int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch = epoch
	c.stamped = true
}

// Epoch returns the epoch label and whether one has been set.
func (c *Canvas) Epoch() (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch, c.stamped
}

// Load replaces the canvas with a restored state. Cells that no longer fit
// the grid (e.g. after a resize) are dropped and counted.
func (c *Canvas) Load(st State) (dropped int) {
	next := make(map[domain.Point]string, len(st.Cells))
	for _, cell := range st.Cells {
		valid, err := c.grid.Validate(cell)
		if err != nil {
			dropped++
			continue
		}
		next[valid.Point()] = valid.Color
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cells = next
	c.contributors.Reset()
	for _, id := range st.Contributors {
		c.contributors.Add(id)
	}
	c.epoch = st.Epoch
	c.stamped = st.Stamped
	c.version++
	return dropped
}

// Len returns the number of colored cells.
func (c *Canvas) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cells)
}

// Version increases on every mutation.
func (c *Canvas) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Contributors returns the distinct contributors since the last rotation.
func (c *Canvas) Contributors() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.contributors.Items()
}
