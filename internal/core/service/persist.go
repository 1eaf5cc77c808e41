package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/pixelsync/internal/core/domain"
	"github.com/yndnr/pixelsync/internal/telemetry/logger"
)

// persistWorker writes archive records and snapshots off the event loop.
// Records that fail to write stay pending and are retried on every flush.
type persistWorker struct {
	store    CanvasStore
	archives ArchiveStore
	interval time.Duration
	metrics  Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	pending []*domain.ArchiveRecord

	// flushMu serializes flushes from the worker and from Persist.
	flushMu sync.Mutex

	// snapMu keeps a snapshot from landing between a store rotation and
	// the enqueue of its record.
	snapMu sync.Mutex

	wake   chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}
}

func newPersistWorker(store CanvasStore, archives ArchiveStore, interval time.Duration, metrics Metrics, log *slog.Logger) *persistWorker {
	return &persistWorker{
		store:    store,
		archives: archives,
		interval: interval,
		metrics:  metrics,
		logger:   log,
		wake:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (w *persistWorker) start() {
	go w.loop()
}

func (w *persistWorker) archiveRef(epoch int64) string {
	if w.archives == nil {
		return ""
	}
	return w.archives.Ref(epoch)
}

// rotate runs the store rotation in fn and enqueues the record it returns.
func (w *persistWorker) rotate(fn func() *domain.ArchiveRecord) *domain.ArchiveRecord {
	w.snapMu.Lock()
	defer w.snapMu.Unlock()
	rec := fn()
	w.enqueue(rec)
	return rec
}

// enqueue schedules rec for writing. It never blocks.
func (w *persistWorker) enqueue(rec *domain.ArchiveRecord) {
	if rec == nil || w.archives == nil {
		return
	}
	w.mu.Lock()
	w.pending = append(w.pending, rec)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *persistWorker) pendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *persistWorker) loop() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.wake:
			w.flushArchives(context.Background())
		case <-ticker.C:
			_ = w.flush(context.Background())
		case <-w.stopCh:
			return
		}
	}
}

// flush writes pending archives, then a snapshot. A snapshot lets the
// store drop the journal behind it, so it is skipped while any archive is
// still pending: the journaled rotation is the only durable copy.
func (w *persistWorker) flush(ctx context.Context) error {
	w.flushArchives(ctx)

	w.flushMu.Lock()
	defer w.flushMu.Unlock()
	w.snapMu.Lock()
	defer w.snapMu.Unlock()

	if n := w.pendingCount(); n > 0 {
		w.metrics.ObservePersistFailure(opSnapshot)
		w.logger.Warn("snapshot deferred, archives pending", "count", n)
		return domain.ErrPersistenceFailure.WithDetails(
			fmt.Sprintf("snapshot deferred: %d archives pending", n))
	}

	start := time.Now()
	if err := w.store.Persist(ctx); err != nil {
		w.metrics.ObservePersistFailure(opSnapshot)
		w.logger.Error("snapshot failed", logger.Err(err))
		return err
	}
	w.metrics.ObserveSnapshot(time.Since(start))
	return nil
}

func (w *persistWorker) flushArchives(ctx context.Context) {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	batch := w.pending
	w.pending = nil
	w.mu.Unlock()

	var failed []*domain.ArchiveRecord
	for _, rec := range batch {
		err := w.archives.Put(ctx, rec)
		switch {
		case err == nil:
			w.logger.Info("epoch archived",
				logger.Epoch(rec.EpochNumber),
				"cells", len(rec.Cells),
				"ref", w.archives.Ref(rec.EpochNumber))
		case errors.Is(err, domain.ErrArchiveExists):
			w.logger.Debug("archive already written", logger.Epoch(rec.EpochNumber))
		default:
			w.metrics.ObservePersistFailure(opArchive)
			w.logger.Error("archive write failed, will retry",
				logger.Epoch(rec.EpochNumber), logger.Err(err))
			failed = append(failed, rec)
		}
	}

	if len(failed) > 0 {
		w.mu.Lock()
		w.pending = append(failed, w.pending...)
		w.mu.Unlock()
	}
}

// stop ends the loop and runs a final flush.
func (w *persistWorker) stop(ctx context.Context) error {
	close(w.stopCh)
	select {
	case <-w.doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	err := w.flush(ctx)
	if n := w.pendingCount(); n > 0 {
		w.logger.Error("archives still pending at shutdown", "count", n)
		if err == nil {
			err = domain.ErrPersistenceFailure.WithDetails("archives pending at shutdown")
		}
	}
	return err
}
