package archive

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/pixelsync/internal/core/domain"
)

var keyPrefix = []byte("archive/")

// BadgerConfig contains Badger tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between value log GC runs.
	GCInterval time.Duration

	// GCThreshold is the discard ratio passed to RunValueLogGC.
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	CacheSize int64

	// SyncWrites fsyncs every commit.
	SyncWrites bool
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
		CacheSize:   32 << 20,
		SyncWrites:  true,
	}
}

// BadgerStore keeps archive records in Badger under archive/<epoch> keys.
// Epochs are encoded big-endian with the sign bit flipped so that key
// order matches numeric order.
type BadgerStore struct {
	db     *badger.DB
	dir    string
	cfg    BadgerConfig
	logger *slog.Logger

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// NewBadgerStore opens (or creates) the database in dir.
func NewBadgerStore(dir string, cfg BadgerConfig, logger *slog.Logger) (*BadgerStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultBadgerConfig()
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = def.GCInterval
	}
	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		cfg.GCThreshold = def.GCThreshold
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = def.CacheSize
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = &badgerLogger{logger: logger.With("component", "badger")}
	opts.BlockCacheSize = cfg.CacheSize
	opts.SyncWrites = cfg.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("archive: open badger: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		dir:    dir,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go s.gcLoop()

	logger.Info("badger archive store opened", "dir", dir, "gc_interval", cfg.GCInterval)
	return s, nil
}

func epochKey(epoch int64) []byte {
	key := make([]byte, len(keyPrefix)+8)
	copy(key, keyPrefix)
	binary.BigEndian.PutUint64(key[len(keyPrefix):], uint64(epoch)^(1<<63))
	return key
}

func keyEpoch(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key[len(keyPrefix):]) ^ (1 << 63))
}

// Ref returns the logical key of the epoch's record.
func (s *BadgerStore) Ref(epoch int64) string {
	return fmt.Sprintf("badger:%s%d", keyPrefix, epoch)
}

// Put stores rec unless the epoch already exists.
func (s *BadgerStore) Put(_ context.Context, rec *domain.ArchiveRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("archive: marshal: %w", err)
	}
	key := epochKey(rec.EpochNumber)

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return domain.ErrArchiveExists.WithDetails(fmt.Sprintf("epoch %d", rec.EpochNumber))
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

// Get returns the record for epoch.
func (s *BadgerStore) Get(_ context.Context, epoch int64) (*domain.ArchiveRecord, error) {
	var rec domain.ArchiveRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(epochKey(epoch))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrArchiveNotFound.WithDetails(fmt.Sprintf("epoch %d", epoch))
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List scans the archive prefix in key (epoch) order.
func (s *BadgerStore) List(_ context.Context) ([]domain.ArchiveSummary, error) {
	var out []domain.ArchiveSummary
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var rec domain.ArchiveRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				s.logger.Warn("skipping unreadable archive", "epoch", keyEpoch(item.Key()), "error", err)
				continue
			}
			out = append(out, rec.Summary())
		}
		return nil
	})
	return out, err
}

// GC runs value log GC until Badger reports nothing left to rewrite and
// returns the number of rewrites performed.
func (s *BadgerStore) GC() (int, error) {
	runs := 0
	for {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
				return runs, nil
			}
			return runs, fmt.Errorf("archive: gc: %w", err)
		}
		runs++
	}
}

func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if runs, err := s.GC(); err != nil {
				s.logger.Error("badger gc failed", "error", err)
			} else if runs > 0 {
				s.logger.Info("badger gc completed", "rewrites", runs)
			}
		case <-s.stopCh:
			return
		}
	}
}

// RegisterMetrics exposes Badger disk usage on reg.
func (s *BadgerStore) RegisterMetrics(reg prometheus.Registerer) error {
	lsm := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "pixelsync",
		Subsystem: "archive_badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes.",
	}, func() float64 {
		l, _ := s.db.Size()
		return float64(l)
	})
	vlog := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "pixelsync",
		Subsystem: "archive_badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes.",
	}, func() float64 {
		_, v := s.db.Size()
		return float64(v)
	})
	for _, c := range []prometheus.Collector{lsm, vlog} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Close stops GC and closes the database.
func (s *BadgerStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
		err = s.db.Close()
	})
	return err
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
