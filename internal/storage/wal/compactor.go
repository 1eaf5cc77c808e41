package wal

import (
	"errors"
	"fmt"
	"os"
)

// DefaultRetainCount is the number of segments always kept after compaction.
const DefaultRetainCount = 2

// Compactor removes segments already covered by a snapshot.
type Compactor struct {
	walDir      string
	retainCount int
}

// CompactorOption configures the Compactor.
type CompactorOption func(*Compactor)

// WithRetainCount sets the number of segments to retain.
func WithRetainCount(count int) CompactorOption {
	return func(c *Compactor) {
		if count > 0 {
			c.retainCount = count
		}
	}
}

// NewCompactor creates a new WAL compactor.
func NewCompactor(walDir string, opts ...CompactorOption) *Compactor {
	c := &Compactor{
		walDir:      walDir,
		retainCount: DefaultRetainCount,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compact deletes segments whose id is below the segment of snapshotOffset,
// keeping at least retainCount segments on disk. It returns the number of
// segments removed.
func (c *Compactor) Compact(snapshotOffset uint64) (int, error) {
	segs, err := listSegments(c.walDir)
	if err != nil {
		return 0, err
	}

	snapshotSeg := snapshotOffset >> 32
	covered := 0
	for _, s := range segs {
		if s.id < snapshotSeg {
			covered++
		}
	}
	if keep := len(segs) - covered; keep < c.retainCount {
		covered -= c.retainCount - keep
	}

	var errs []error
	removed := 0
	for _, s := range segs[:max(covered, 0)] {
		if err := os.Remove(s.path); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", s.path, err))
			continue
		}
		removed++
	}
	if len(errs) > 0 {
		return removed, fmt.Errorf("wal: compact: %w", errors.Join(errs...))
	}
	return removed, nil
}

// TotalSize returns the size of all segments in bytes.
func (c *Compactor) TotalSize() (int64, error) {
	segs, err := listSegments(c.walDir)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, s := range segs {
		if info, err := os.Stat(s.path); err == nil {
			total += info.Size()
		}
	}
	return total, nil
}
