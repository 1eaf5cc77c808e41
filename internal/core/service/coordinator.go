package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/pixelsync/internal/core/domain"
	"github.com/yndnr/pixelsync/internal/telemetry/logger"
)

// Default coordinator settings.
const (
	DefaultMaxBatch      = 256
	DefaultFlushInterval = 30 * time.Second
)

// CanvasStore is the authoritative cell set with its journal.
type CanvasStore interface {
	Grid() domain.Grid

	// Apply validates and writes one cell.
	Apply(cell domain.Cell, contributor string) (domain.Cell, error)

	// ApplyBatch applies the valid cells in order. errs is parallel to
	// cells; a nil entry means the cell was applied.
	ApplyBatch(cells []domain.Cell, contributor string) (applied []domain.Cell, errs []error)

	// Clear empties the canvas and returns the number of cells removed.
	Clear() int

	// Rotate captures the labelled epoch's archive record, clears the
	// canvas and relabels it with next. It returns nil when the canvas had
	// no label.
	Rotate(next int64, closedAt time.Time) *domain.ArchiveRecord

	// Stamp relabels the canvas without touching cells.
	Stamp(epoch int64)

	Snapshot() []domain.Cell
	Epoch() (int64, bool)
	Contributors() []string
	Len() int

	// Persist writes a durable snapshot. It is idempotent.
	Persist(ctx context.Context) error
}

// ArchiveStore keeps archive records.
type ArchiveStore interface {
	// Put fails with domain.ErrArchiveExists when the epoch is archived.
	Put(ctx context.Context, rec *domain.ArchiveRecord) error

	// Ref names where the epoch's record lives.
	Ref(epoch int64) string
}

// Metrics receives coordinator events. *metric.Registry implements it.
type Metrics interface {
	ObserveWrites(outcome string, n int)
	ObserveBatch(size int)
	ObserveBroadcast(event string)
	ObserveDropped()
	ObserveRollover()
	ObservePersistFailure(op string)
	ObserveSnapshot(d time.Duration)
}

// Metric labels used by the coordinator.
const (
	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"

	opArchive  = "archive"
	opSnapshot = "snapshot"
)

// Config configures the Coordinator.
type Config struct {
	Store    CanvasStore
	Archives ArchiveStore

	Schedule domain.Schedule

	// CheckInterval is the period of the epoch check.
	CheckInterval time.Duration

	// FlushInterval is the period of snapshot writes and archive retries.
	FlushInterval time.Duration

	// MaxBatch caps the number of cells in one WriteBatch.
	MaxBatch int

	// Now returns the wall clock. Defaults to time.Now.
	Now func() time.Time

	Metrics Metrics
	Logger  *slog.Logger
}

// Coordinator serializes writes, epoch checks and broadcasts.
type Coordinator struct {
	cfg      Config
	store    CanvasStore
	schedule domain.Schedule
	now      func() time.Time
	metrics  Metrics
	logger   *slog.Logger

	cmds chan func()

	// Owned by the loop goroutine after Start.
	sessions map[string]Subscriber
	active   int64

	sessionCount atomic.Int64
	activeEpoch  atomic.Int64

	persist *persistWorker

	started   atomic.Bool
	stopCh    chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// New creates a coordinator. Call Start before use.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("service: canvas store is required")
	}
	if cfg.Schedule.Anchor.IsZero() && cfg.Schedule.Duration == 0 {
		cfg.Schedule = domain.DefaultSchedule()
	}
	if !cfg.Schedule.Valid() {
		return nil, fmt.Errorf("service: invalid epoch schedule (anchor %v, duration %v)",
			cfg.Schedule.Anchor, cfg.Schedule.Duration)
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = domain.DefaultCheckInterval
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = DefaultMaxBatch
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	log := logger.Component(cfg.Logger, "coordinator")
	c := &Coordinator{
		cfg:      cfg,
		store:    cfg.Store,
		schedule: cfg.Schedule,
		now:      cfg.Now,
		metrics:  cfg.Metrics,
		logger:   log,
		cmds:     make(chan func()),
		sessions: make(map[string]Subscriber),
		stopCh:   make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	c.persist = newPersistWorker(cfg.Store, cfg.Archives, cfg.FlushInterval, cfg.Metrics, log)
	return c, nil
}

// Start reconciles the restored canvas with the wall clock and starts the
// event loop and the persistence worker. recovered holds archive records
// found while restoring; they are written again if missing.
//
// A canvas restored from an older epoch is rolled over before Start
// returns, so no session ever sees stale cells.
func (c *Coordinator) Start(ctx context.Context, recovered ...*domain.ArchiveRecord) error {
	select {
	case <-c.stopCh:
		return domain.ErrServiceUnavailable.WithDetails("coordinator closed")
	default:
	}
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("service: coordinator already started")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, rec := range recovered {
		c.persist.enqueue(rec)
	}

	now := c.now()
	current := c.schedule.NumberAt(now)
	epoch, stamped := c.store.Epoch()

	switch {
	case !stamped:
		c.store.Stamp(current)
		c.active = current
	case epoch < current:
		c.active = epoch
		c.logger.Info("restored canvas belongs to a closed epoch, rolling over",
			"restored_epoch", epoch, "current_epoch", current)
		c.rollover(current)
	case epoch > current:
		c.logger.Warn("restored canvas is labelled with a future epoch, relabelling",
			"restored_epoch", epoch, "current_epoch", current)
		c.store.Stamp(current)
		c.active = current
	default:
		c.active = current
	}
	c.activeEpoch.Store(c.active)

	c.persist.start()
	go c.run()

	c.logger.Info("coordinator started",
		logger.Epoch(c.active),
		"epoch_end", c.schedule.Epoch(c.active).End,
		"cells", c.store.Len())
	return nil
}

func (c *Coordinator) run() {
	defer close(c.loopDone)

	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case fn := <-c.cmds:
			fn()
		case <-ticker.C:
			c.checkEpoch(c.now())
		case <-c.stopCh:
			return
		}
	}
}

// do runs fn on the loop and waits for it. If ctx ends while fn is queued
// it is not run; if ctx ends while fn runs, do returns early and fn still
// completes.
func (c *Coordinator) do(ctx context.Context, fn func()) error {
	if !c.started.Load() {
		return domain.ErrServiceUnavailable.WithDetails("coordinator not started")
	}

	done := make(chan struct{})
	select {
	case c.cmds <- func() { fn(); close(done) }:
	case <-c.loopDone:
		return domain.ErrServiceUnavailable
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the event loop, writes pending archives and a final snapshot.
// It does not close the store.
func (c *Coordinator) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		close(c.stopCh)
		if !c.started.Load() {
			close(c.loopDone)
			return
		}
		select {
		case <-c.loopDone:
		case <-ctx.Done():
			c.closeErr = ctx.Err()
			return
		}
		c.closeErr = c.persist.stop(ctx)
		c.logger.Info("coordinator stopped")
	})
	return c.closeErr
}

// Connect registers sub and sends it the current canvas and epoch.
func (c *Coordinator) Connect(ctx context.Context, sub Subscriber) error {
	return c.do(ctx, func() {
		c.sessions[sub.ID()] = sub
		c.sessionCount.Store(int64(len(c.sessions)))

		c.send(sub, Event{Name: EventInitialSnapshot, Data: c.view()})
		c.send(sub, Event{Name: EventEpochInfo, Data: c.epochInfo()})

		c.logger.Debug("session connected", logger.Session(sub.ID()), "sessions", len(c.sessions))
	})
}

// Disconnect removes the session. Unknown IDs are ignored.
func (c *Coordinator) Disconnect(ctx context.Context, sessionID string) error {
	return c.do(ctx, func() {
		if _, ok := c.sessions[sessionID]; !ok {
			return
		}
		delete(c.sessions, sessionID)
		c.sessionCount.Store(int64(len(c.sessions)))
		c.logger.Debug("session disconnected", logger.Session(sessionID), "sessions", len(c.sessions))
	})
}

// Write applies one cell and broadcasts write_accepted to every session,
// the writer included. A rejected cell is reported to sub only; sub may be
// nil for writers without a session.
func (c *Coordinator) Write(ctx context.Context, sub Subscriber, cell domain.Cell, contributor string) (domain.Cell, error) {
	var (
		applied domain.Cell
		werr    error
	)
	err := c.do(ctx, func() {
		applied, werr = c.store.Apply(cell, contributor)
		if werr != nil {
			c.metrics.ObserveWrites(outcomeRejected, 1)
			if sub != nil {
				info := NewErrorInfo(werr)
				c.send(sub, Event{Name: EventWriteRejected, Data: WriteRejected{
					X: cell.X, Y: cell.Y, Color: cell.Color, Code: info.Code, Reason: info.Reason,
				}})
			}
			return
		}
		c.metrics.ObserveWrites(outcomeAccepted, 1)
		c.broadcast(Event{Name: EventWriteAccepted, Data: applied})
	})
	if err != nil {
		return domain.Cell{}, err
	}
	return applied, werr
}

// WriteBatch validates every cell independently, applies the valid ones
// and broadcasts them in one batch_accepted. Rejections go to sub only.
// A batch larger than the configured maximum is rejected as a whole.
func (c *Coordinator) WriteBatch(ctx context.Context, sub Subscriber, cells []domain.Cell, contributor string) (*BatchResult, error) {
	items := make([]BatchItem, len(cells))
	for i, cell := range cells {
		items[i].Cell = cell
	}
	return c.WriteBatchItems(ctx, sub, items, contributor)
}

// WriteBatchItems is WriteBatch for cells decoded by a transport. Items
// carrying an error are reported in batch_rejected under their own index
// alongside the cells the canvas rejected.
func (c *Coordinator) WriteBatchItems(ctx context.Context, sub Subscriber, items []BatchItem, contributor string) (*BatchResult, error) {
	if len(items) > c.cfg.MaxBatch {
		berr := domain.ErrBatchTooLarge.WithDetails(fmt.Sprintf("%d cells, max %d", len(items), c.cfg.MaxBatch))
		if sub != nil {
			sub.Send(Event{Name: EventError, Data: NewErrorInfo(berr)})
		}
		return nil, berr
	}

	cells := make([]domain.Cell, 0, len(items))
	index := make([]int, 0, len(items))
	res := &BatchResult{}
	for i, it := range items {
		if it.Err != nil {
			res.Rejected = append(res.Rejected, NewRejection(i, it.Cell, it.Err))
			continue
		}
		cells = append(cells, it.Cell)
		index = append(index, i)
	}

	err := c.do(ctx, func() {
		c.metrics.ObserveBatch(len(items))

		applied, errs := c.store.ApplyBatch(cells, contributor)
		res.Applied = applied
		for j, e := range errs {
			if e != nil {
				res.Rejected = append(res.Rejected, NewRejection(index[j], cells[j], e))
			}
		}
		sort.Slice(res.Rejected, func(a, b int) bool { return res.Rejected[a].Index < res.Rejected[b].Index })
		c.metrics.ObserveWrites(outcomeAccepted, len(res.Applied))
		c.metrics.ObserveWrites(outcomeRejected, len(res.Rejected))

		if len(res.Applied) > 0 {
			c.broadcast(Event{Name: EventBatchAccepted, Data: BatchAccepted{Cells: res.Applied}})
		}
		if len(res.Rejected) > 0 && sub != nil {
			c.send(sub, Event{Name: EventBatchRejected, Data: BatchRejected{Results: res.Rejected}})
		}
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Reset clears the canvas within the running epoch and broadcasts
// canvas_reset. No archive is written.
func (c *Coordinator) Reset(ctx context.Context) (int, error) {
	var n int
	err := c.do(ctx, func() {
		n = c.store.Clear()
		c.broadcast(Event{Name: EventCanvasReset})
		c.logger.Info("canvas reset", "cells_removed", n, logger.Epoch(c.active))
	})
	return n, err
}

// RequestEpochInfo runs an epoch check and sends epoch_info to sub.
func (c *Coordinator) RequestEpochInfo(ctx context.Context, sub Subscriber) (EpochInfo, error) {
	var info EpochInfo
	err := c.do(ctx, func() {
		c.checkEpoch(c.now())
		info = c.epochInfo()
		if sub != nil {
			c.send(sub, Event{Name: EventEpochInfo, Data: info})
		}
	})
	return info, err
}

// CheckEpoch runs the epoch check now and reports whether a rollover
// happened.
func (c *Coordinator) CheckEpoch(ctx context.Context) (bool, error) {
	var rolled bool
	err := c.do(ctx, func() {
		rolled = c.checkEpoch(c.now())
	})
	return rolled, err
}

// Canvas returns the current canvas, consistent with its epoch label.
func (c *Coordinator) Canvas(ctx context.Context) (CanvasView, error) {
	var v CanvasView
	err := c.do(ctx, func() {
		v = c.view()
	})
	return v, err
}

// Contributors returns the distinct contributors of the running epoch.
func (c *Coordinator) Contributors(ctx context.Context) ([]string, error) {
	var out []string
	err := c.do(ctx, func() {
		out = c.store.Contributors()
	})
	return out, err
}

// Persist writes pending archives and a snapshot now.
func (c *Coordinator) Persist(ctx context.Context) error {
	return c.persist.flush(ctx)
}

// Schedule returns the epoch calendar.
func (c *Coordinator) Schedule() domain.Schedule {
	return c.schedule
}

// Sessions returns the number of connected sessions.
func (c *Coordinator) Sessions() int {
	return int(c.sessionCount.Load())
}

// ActiveEpoch returns the epoch the live canvas belongs to.
func (c *Coordinator) ActiveEpoch() int64 {
	return c.activeEpoch.Load()
}

func (c *Coordinator) view() CanvasView {
	cells := c.store.Snapshot()
	if cells == nil {
		cells = []domain.Cell{}
	}
	return CanvasView{EpochNumber: c.active, Cells: cells}
}

func (c *Coordinator) epochInfo() EpochInfo {
	return EpochInfo{
		EpochNumber: c.active,
		EpochEnd:    c.schedule.Epoch(c.active).End,
	}
}

func (c *Coordinator) send(sub Subscriber, ev Event) {
	if !sub.Send(ev) {
		c.metrics.ObserveDropped()
		c.logger.Debug("event dropped", logger.Session(sub.ID()), "event", ev.Name)
	}
}

func (c *Coordinator) broadcast(ev Event) {
	for _, sub := range c.sessions {
		c.send(sub, ev)
	}
	c.metrics.ObserveBroadcast(ev.Name)
}

type nopMetrics struct{}

func (nopMetrics) ObserveWrites(string, int) {}
func (nopMetrics) ObserveBatch(int) {}
func (nopMetrics) ObserveBroadcast(string) {}
func (nopMetrics) ObserveDropped() {}
func (nopMetrics) ObserveRollover() {}
func (nopMetrics) ObservePersistFailure(string) {}
func (nopMetrics) ObserveSnapshot(time.Duration) {}
