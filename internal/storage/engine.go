package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/yndnr/pixelsync/internal/core/domain"
	"github.com/yndnr/pixelsync/internal/storage/memory"
	"github.com/yndnr/pixelsync/internal/storage/snapshot"
	"github.com/yndnr/pixelsync/internal/storage/wal"
	"github.com/yndnr/pixelsync/internal/telemetry/logger"
)

// Default configuration values.
const (
	DefaultSnapshotInterval = 30 * time.Second
	DefaultWALDir           = "wal"
	DefaultSnapshotDir      = "snapshots"
)

// Operation names passed to Config.OnError.
const (
	OpJournal  = "journal"
	OpSnapshot = "snapshot"
	OpCompact  = "compact"
)

// Config configures the storage engine.
type Config struct {
	// DataDir is the base directory for all storage files.
	DataDir string

	Grid domain.Grid

	WAL      wal.Config
	Snapshot snapshot.Config

	// WALRetainCount is the number of WAL segments kept after compaction.
	WALRetainCount int

	Logger *slog.Logger

	// OnError is called for every persistence failure that did not stop the
	// operation. op is one of the Op* constants.
	OnError func(op string, err error)
}

// DefaultConfig returns the default storage configuration.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:  dataDir,
		Grid:     domain.DefaultGrid(),
		WAL:      wal.DefaultConfig(filepath.Join(dataDir, DefaultWALDir)),
		Snapshot: snapshot.DefaultConfig(filepath.Join(dataDir, DefaultSnapshotDir)),
		Logger:   slog.Default(),
	}
}

// RestoreResult describes what Restore recovered.
type RestoreResult struct {
	Epoch   int64
	Stamped bool
	Cells   int

	// SnapshotID is empty when no snapshot was found.
	SnapshotID string

	Replayed int
	Dropped  int

	// Archives holds the records of rotations found in the replayed WAL.
	// They may or may not have reached the archive store before the
	// process stopped.
	Archives []*domain.ArchiveRecord
}

// Engine is the durable canvas: memory, WAL and snapshots.
type Engine struct {
	cfg Config

	// mu orders canvas mutations with their journal entries and makes the
	// (state, offset) pair taken by Persist consistent.
	mu sync.Mutex

	canvas   *memory.Canvas
	wal      *wal.Writer
	snapshot *snapshot.Manager

	persistMu       sync.Mutex
	lastInfo        *snapshot.Info
	lastPersistedAt uint64 // canvas version covered by lastInfo

	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// New creates the engine. Call Restore before serving to load existing
// data.
func New(cfg Config) (*Engine, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("storage: data_dir is required")
	}
	if cfg.Grid.Width <= 0 || cfg.Grid.Height <= 0 {
		cfg.Grid = domain.DefaultGrid()
	}
	if cfg.WAL.Dir == "" {
		cfg.WAL.Dir = filepath.Join(cfg.DataDir, DefaultWALDir)
	}
	if cfg.Snapshot.Dir == "" {
		cfg.Snapshot.Dir = filepath.Join(cfg.DataDir, DefaultSnapshotDir)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	walWriter, err := wal.NewWriter(cfg.WAL)
	if err != nil {
		return nil, fmt.Errorf("storage: create wal writer: %w", err)
	}

	snapMgr, err := snapshot.NewManager(cfg.Snapshot)
	if err != nil {
		walWriter.Close()
		return nil, fmt.Errorf("storage: create snapshot manager: %w", err)
	}

	return &Engine{
		cfg:      cfg,
		canvas:   memory.NewCanvas(cfg.Grid),
		wal:      walWriter,
		snapshot: snapMgr,
		logger:   logger.Component(cfg.Logger, "storage"),
	}, nil
}

// Restore loads the newest valid snapshot and replays the WAL after it.
// With no data on disk the canvas stays empty and unstamped.
func (e *Engine) Restore(ctx context.Context) (*RestoreResult, error) {
	startTime := time.Now()
	e.logger.Info("storage recovery started")

	e.mu.Lock()
	defer e.mu.Unlock()

	res := &RestoreResult{}

	state, snapInfo, err := e.snapshot.Load()
	if err != nil && !errors.Is(err, snapshot.ErrNoSnapshots) {
		return nil, fmt.Errorf("storage: load snapshot: %w", err)
	}

	walOffset := uint64(0)
	if snapInfo != nil {
		res.Dropped = e.canvas.Load(state)
		res.SnapshotID = snapInfo.ID
		walOffset = snapInfo.WALLastOffset
		e.logger.Info("snapshot loaded",
			"id", snapInfo.ID,
			"epoch", snapInfo.Epoch,
			"cell_count", snapInfo.CellCount,
			"wal_last_offset", walOffset)
		if res.Dropped > 0 {
			e.logger.Warn("cells outside the grid dropped", "count", res.Dropped)
		}
	} else {
		e.logger.Info("no snapshot found, starting with empty canvas")
	}

	replayed, archives, err := e.replayWAL(ctx, walOffset)
	if err != nil {
		return nil, fmt.Errorf("storage: replay wal: %w", err)
	}
	res.Replayed = replayed
	res.Archives = archives

	res.Epoch, res.Stamped = e.canvas.Epoch()
	res.Cells = e.canvas.Len()

	e.logger.Info("storage recovery completed",
		"elapsed", time.Since(startTime),
		"epoch", res.Epoch,
		"stamped", res.Stamped,
		"cells", res.Cells,
		"replayed", res.Replayed,
		"archives", len(res.Archives))
	return res, nil
}

func (e *Engine) replayWAL(ctx context.Context, fromOffset uint64) (int, []*domain.ArchiveRecord, error) {
	reader, err := wal.NewReader(e.cfg.WAL.Dir)
	if err != nil {
		return 0, nil, err
	}
	defer reader.Close()

	if err := reader.Seek(fromOffset); err != nil {
		return 0, nil, err
	}

	var archives []*domain.ArchiveRecord
	applied := 0
	for {
		if err := ctx.Err(); err != nil {
			return applied, archives, err
		}

		entry, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return applied, archives, err
		}

		switch entry.OpType {
		case wal.OpTypePaint:
			for _, cell := range entry.Cells {
				if _, err := e.canvas.Apply(cell, entry.Contributor); err != nil {
					e.logger.Warn("skipping journaled cell", logger.Cell(cell), logger.Err(err))
				}
			}
		case wal.OpTypeClear:
			e.canvas.Clear()
		case wal.OpTypeRotate:
			e.canvas.Rotate(entry.Epoch, time.UnixMilli(entry.Timestamp))
			if entry.Archive != nil {
				archives = append(archives, entry.Archive)
			}
		case wal.OpTypeStamp:
			e.canvas.Stamp(entry.Epoch)
		default:
			e.logger.Warn("skipping unknown wal entry", "type", entry.OpType)
			continue
		}
		applied++
	}
	return applied, archives, nil
}

func (e *Engine) journal(entry *wal.Entry) {
	if err := e.wal.Append(entry); err != nil {
		e.reportError(OpJournal, err)
	}
}

func (e *Engine) reportError(op string, err error) {
	e.logger.Error("persistence failure", "op", op, "error", err)
	if e.cfg.OnError != nil {
		e.cfg.OnError(op, err)
	}
}

// Apply validates and writes one cell. Validation errors leave the canvas
// untouched.
func (e *Engine) Apply(cell domain.Cell, contributor string) (domain.Cell, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	applied, err := e.canvas.Apply(cell, contributor)
	if err != nil {
		return domain.Cell{}, err
	}
	epoch, _ := e.canvas.Epoch()
	e.journal(wal.NewPaintEntry(epoch, []domain.Cell{applied}, contributor))
	return applied, nil
}

// ApplyBatch validates each cell independently and applies the valid ones
// in order. errs is parallel to cells; a nil entry means the cell was
// applied. The applied subset is journaled as one entry.
func (e *Engine) ApplyBatch(cells []domain.Cell, contributor string) (applied []domain.Cell, errs []error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	errs = make([]error, len(cells))
	for i, cell := range cells {
		got, err := e.canvas.Apply(cell, contributor)
		if err != nil {
			errs[i] = err
			continue
		}
		applied = append(applied, got)
	}
	if len(applied) > 0 {
		epoch, _ := e.canvas.Epoch()
		e.journal(wal.NewPaintEntry(epoch, applied, contributor))
	}
	return applied, errs
}

// Clear empties the canvas within the current epoch.
func (e *Engine) Clear() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := e.canvas.Clear()
	epoch, _ := e.canvas.Epoch()
	e.journal(wal.NewClearEntry(epoch))
	return n
}

// Rotate closes the labelled epoch and relabels the empty canvas with next.
// It returns the archive record, or nil when the canvas had no label.
func (e *Engine) Rotate(next int64, closedAt time.Time) *domain.ArchiveRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := e.canvas.Rotate(next, closedAt)
	entry := wal.NewRotateEntry(next, rec)
	entry.Timestamp = closedAt.UnixMilli()
	e.journal(entry)
	return rec
}

// Stamp labels the canvas with epoch without touching cells.
func (e *Engine) Stamp(epoch int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.canvas.Stamp(epoch)
	e.journal(wal.NewStampEntry(epoch))
}

// Grid returns the canvas bounds.
func (e *Engine) Grid() domain.Grid {
	return e.canvas.Grid()
}

// Snapshot returns the cells sorted by row then column.
func (e *Engine) Snapshot() []domain.Cell {
	return e.canvas.Snapshot()
}

// State returns a copy of the full canvas state.
func (e *Engine) State() memory.State {
	return e.canvas.State()
}

// Epoch returns the canvas label.
func (e *Engine) Epoch() (int64, bool) {
	return e.canvas.Epoch()
}

// Contributors returns the distinct contributors of the running epoch.
func (e *Engine) Contributors() []string {
	return e.canvas.Contributors()
}

// Len returns the number of colored cells.
func (e *Engine) Len() int {
	return e.canvas.Len()
}

// Persist writes a snapshot if the canvas changed since the last one.
func (e *Engine) Persist(ctx context.Context) error {
	_, err := e.Checkpoint(ctx)
	return err
}

// Checkpoint writes a snapshot of the current state, prunes old snapshots
// and compacts WAL segments the snapshot covers. When nothing changed since
// the last successful checkpoint the previous snapshot is returned.
func (e *Engine) Checkpoint(ctx context.Context) (*snapshot.Info, error) {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	version := e.canvas.Version()
	if e.lastInfo != nil && version == e.lastPersistedAt {
		info := e.lastInfo
		e.mu.Unlock()
		return info, nil
	}
	if err := e.wal.Flush(); err != nil {
		e.mu.Unlock()
		e.reportError(OpJournal, err)
		return nil, domain.ErrPersistenceFailure.WithCause(err)
	}
	offset := e.wal.CurrentOffset()
	state := e.canvas.State()
	e.mu.Unlock()

	info, err := e.snapshot.Create(e.cfg.Grid, state, offset)
	if err != nil {
		e.reportError(OpSnapshot, err)
		return nil, domain.ErrPersistenceFailure.WithCause(err)
	}
	e.lastInfo = info
	e.lastPersistedAt = version

	e.logger.Debug("snapshot created",
		"id", info.ID,
		"epoch", info.Epoch,
		"cell_count", info.CellCount,
		"wal_last_offset", info.WALLastOffset,
		"size_bytes", info.Size)

	if _, err := e.snapshot.Prune(); err != nil {
		e.logger.Warn("snapshot cleanup failed", "error", err)
	}

	compactor := wal.NewCompactor(e.cfg.WAL.Dir, wal.WithRetainCount(e.cfg.WALRetainCount))
	if removed, err := compactor.Compact(info.WALLastOffset); err != nil {
		e.reportError(OpCompact, err)
	} else if removed > 0 {
		e.logger.Debug("wal compacted", "segments_removed", removed)
	}

	return info, nil
}

// Close flushes and closes the WAL. It does not write a snapshot; callers
// that want one call Checkpoint first.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if err := e.wal.Close(); err != nil {
			e.logger.Error("close wal failed", "error", err)
			e.closeErr = err
			return
		}
		e.logger.Info("storage engine closed")
	})
	return e.closeErr
}
