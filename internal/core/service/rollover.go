package service

import (
	"errors"
	"time"

	"github.com/yndnr/pixelsync/internal/core/domain"
	"github.com/yndnr/pixelsync/internal/telemetry/logger"
)

// checkEpoch rolls the canvas over when the wall clock has left the active
// epoch. It runs on the loop.
func (c *Coordinator) checkEpoch(now time.Time) bool {
	current := c.schedule.NumberAt(now)
	if current <= c.active {
		return false
	}
	if err := c.rolloverFrom(c.active, current); err != nil {
		if errors.Is(err, domain.ErrDuplicateRollover) {
			c.logger.Debug("rollover skipped", logger.Err(err))
			return false
		}
		c.logger.Error("rollover failed", logger.Err(err))
		return false
	}
	return true
}

// rolloverFrom closes epoch closing. A trigger for an epoch that is no
// longer active is a duplicate and changes nothing.
func (c *Coordinator) rolloverFrom(closing, next int64) error {
	if closing != c.active || next <= closing {
		return domain.ErrDuplicateRollover
	}
	c.rollover(next)
	return nil
}

// rollover archives the active epoch, clears the canvas, activates next and
// broadcasts new_epoch. The store captures the record and clears under one
// lock, so no write of the new epoch can reach the archive.
func (c *Coordinator) rollover(next int64) {
	closing := c.active
	closedAt := c.schedule.Epoch(closing).End

	rec := c.persist.rotate(func() *domain.ArchiveRecord {
		return c.store.Rotate(next, closedAt)
	})

	c.active = next
	c.activeEpoch.Store(next)

	var ref string
	if rec != nil {
		ref = c.persist.archiveRef(rec.EpochNumber)
	}

	c.broadcast(Event{Name: EventNewEpoch, Data: NewEpoch{
		EpochNumber:     next,
		EpochEnd:        c.schedule.Epoch(next).End,
		PreviousArchive: ref,
	}})
	c.metrics.ObserveRollover()

	attrs := []any{"closed_epoch", closing, "epoch", next, "sessions", len(c.sessions)}
	if rec != nil {
		attrs = append(attrs, "archived_cells", len(rec.Cells), "archive", ref)
	}
	c.logger.Info("epoch rolled over", attrs...)
}
