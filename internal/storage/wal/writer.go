package wal

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var errInvalidMagic = errors.New("wal: invalid magic bytes")

// File format constants.
const (
	FilePrefix      = "wal-"
	FileExtension   = ".log"
	MagicBytes      = "PXSYWAL\x01"
	MagicBytesSize  = 8
	ChecksumSize    = 32
	DefaultFilePerm = 0600
	DefaultDirPerm  = 0750
)

// Default configuration values.
const (
	DefaultBatchCount          = 256
	DefaultBatchBytes    int64 = 1 << 20
	DefaultSyncInterval        = time.Second
	DefaultMaxFileSize   int64 = 32 << 20
	DefaultMaxEntryCount       = 100000
)

// SyncMode defines how the writer reaches disk.
type SyncMode string

const (
	// SyncModeSync writes and fsyncs on every Append.
	SyncModeSync SyncMode = "sync"
	// SyncModeBatch buffers appends and flushes on thresholds or SyncInterval.
	SyncModeBatch SyncMode = "batch"
)

// Config configures the WAL writer.
type Config struct {
	Dir string

	SyncMode     SyncMode
	SyncInterval time.Duration

	BatchCount int
	BatchBytes int64

	MaxFileSize   int64
	MaxEntryCount int
}

// DefaultConfig returns the default WAL configuration.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:           dir,
		SyncMode:      SyncModeBatch,
		SyncInterval:  DefaultSyncInterval,
		BatchCount:    DefaultBatchCount,
		BatchBytes:    DefaultBatchBytes,
		MaxFileSize:   DefaultMaxFileSize,
		MaxEntryCount: DefaultMaxEntryCount,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig(c.Dir)
	if c.SyncMode == "" {
		c.SyncMode = d.SyncMode
	}
	if c.SyncInterval <= 0 {
		c.SyncInterval = d.SyncInterval
	}
	if c.BatchCount <= 0 {
		c.BatchCount = d.BatchCount
	}
	if c.BatchBytes <= 0 {
		c.BatchBytes = d.BatchBytes
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = d.MaxFileSize
	}
	if c.MaxEntryCount <= 0 {
		c.MaxEntryCount = d.MaxEntryCount
	}
}

// Writer appends entries to segment files. Each Writer starts a fresh
// segment; segments left open by a crashed process stay readable and are
// replayed up to their last intact frame.
type Writer struct {
	cfg Config

	mu sync.Mutex

	segmentID uint64
	file      *os.File
	size      int64 // bytes written, excluding the checksum trailer
	entries   int
	hash      hash.Hash

	pending      [][]byte
	pendingBytes int64

	stopCh chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// NewWriter creates a new WAL writer.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("wal: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("wal: create dir: %w", err)
	}
	cfg.applyDefaults()

	segs, err := listSegments(cfg.Dir)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}
	if len(segs) > 0 {
		w.segmentID = segs[len(segs)-1].id
	}
	w.segmentID++
	if err := w.openSegmentLocked(); err != nil {
		return nil, err
	}

	if cfg.SyncMode == SyncModeBatch {
		w.wg.Add(1)
		go w.syncLoop()
	}
	return w, nil
}

// CurrentOffset returns the composite offset of the next byte to be
// written to disk. Buffered entries are not covered; call Flush first when
// the offset must include them.
func (w *Writer) CurrentOffset() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return (w.segmentID << 32) | uint64(uint32(w.size))
}

// Append buffers an entry and flushes depending on mode and thresholds.
func (w *Writer) Append(entry *Entry) error {
	frame, err := encodeEntryFrame(entry)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("wal: writer is closed")
	}

	w.pending = append(w.pending, frame)
	w.pendingBytes += int64(len(frame))

	if w.cfg.SyncMode == SyncModeSync ||
		len(w.pending) >= w.cfg.BatchCount ||
		w.pendingBytes >= w.cfg.BatchBytes {
		return w.flushLocked()
	}
	return nil
}

// Flush writes buffered entries to disk and fsyncs the segment.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if len(w.pending) == 0 {
		return nil
	}

	if w.size+w.pendingBytes > w.cfg.MaxFileSize ||
		w.entries+len(w.pending) > w.cfg.MaxEntryCount {
		if err := w.sealLocked(); err != nil {
			return err
		}
		w.segmentID++
		if err := w.openSegmentLocked(); err != nil {
			return err
		}
	}

	batch := bytes.Join(w.pending, nil)
	if err := w.writeLocked(batch); err != nil {
		return fmt.Errorf("wal: write batch: %w", err)
	}
	w.entries += len(w.pending)
	w.pending = nil
	w.pendingBytes = 0

	return w.file.Sync()
}

func (w *Writer) syncLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = w.Flush()
		case <-w.stopCh:
			return
		}
	}
}

func (w *Writer) openSegmentLocked() error {
	path := filepath.Join(w.cfg.Dir, formatSegmentFilename(w.segmentID))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("wal: open segment: %w", err)
	}

	w.file = file
	w.size = 0
	w.entries = 0
	w.hash = sha256.New()

	if err := w.writeLocked([]byte(MagicBytes)); err != nil {
		file.Close()
		return fmt.Errorf("wal: write magic: %w", err)
	}
	return nil
}

func (w *Writer) writeLocked(p []byte) error {
	n, err := w.file.Write(p)
	if n > 0 {
		w.hash.Write(p[:n])
		w.size += int64(n)
	}
	return err
}

// sealLocked appends the checksum trailer and closes the segment.
func (w *Writer) sealLocked() error {
	if _, err := w.file.Write(w.hash.Sum(nil)); err != nil {
		return fmt.Errorf("wal: write checksum: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("wal: sync: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("wal: close: %w", err)
	}
	w.file = nil
	return nil
}

// Close flushes pending writes and seals the current segment.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.flushLocked(); err != nil {
		return err
	}
	if w.file == nil {
		return nil
	}
	return w.sealLocked()
}

type segmentInfo struct {
	id   uint64
	path string
}

func formatSegmentFilename(segmentID uint64) string {
	return fmt.Sprintf("%s%08d%s", FilePrefix, segmentID, FileExtension)
}

func parseSegmentFilename(name string) (uint64, bool) {
	if !strings.HasPrefix(name, FilePrefix) || !strings.HasSuffix(name, FileExtension) {
		return 0, false
	}
	var id uint64
	_, err := fmt.Sscanf(name, FilePrefix+"%d"+FileExtension, &id)
	return id, err == nil
}

// listSegments returns segment files in id order. A missing dir is empty.
func listSegments(dir string) ([]segmentInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("wal: read dir: %w", err)
	}

	var segs []segmentInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := parseSegmentFilename(e.Name()); ok {
			segs = append(segs, segmentInfo{id: id, path: filepath.Join(dir, e.Name())})
		}
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].id < segs[j].id })
	return segs, nil
}

// sealedLength reports whether f ends with a valid checksum trailer and,
// if so, the length of the data before it.
func sealedLength(f *os.File, size int64) (sealed bool, dataLen int64, err error) {
	if size < MagicBytesSize {
		return false, size, nil
	}

	magic := make([]byte, MagicBytesSize)
	if _, err := io.ReadFull(io.NewSectionReader(f, 0, MagicBytesSize), magic); err != nil {
		return false, 0, fmt.Errorf("wal: read magic: %w", err)
	}
	if string(magic) != MagicBytes {
		return false, 0, errInvalidMagic
	}
	if size < MagicBytesSize+ChecksumSize {
		return false, size, nil
	}

	trailer := make([]byte, ChecksumSize)
	if _, err := io.ReadFull(io.NewSectionReader(f, size-ChecksumSize, ChecksumSize), trailer); err != nil {
		return false, 0, fmt.Errorf("wal: read checksum trailer: %w", err)
	}

	h := sha256.New()
	dataLen = size - ChecksumSize
	if _, err := io.CopyN(h, io.NewSectionReader(f, 0, dataLen), dataLen); err != nil {
		return false, 0, fmt.Errorf("wal: hash: %w", err)
	}
	if !bytes.Equal(h.Sum(nil), trailer) {
		return false, size, nil
	}
	return true, dataLen, nil
}
