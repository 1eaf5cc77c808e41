package snapshot

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yndnr/pixelsync/internal/core/domain"
	"github.com/yndnr/pixelsync/internal/storage/memory"
)

var magicBytes = []byte("PXSYSNAP")

const (
	filePrefix    = "snapshot-"
	fileExtension = ".snap"
	checksumSize  = 32
	headerVersion = 1

	// DefaultRetentionCount is how many snapshots Prune keeps.
	DefaultRetentionCount = 5
)

type snapshotHeader struct {
	Version       int    `json:"version"`
	CreatedAt     int64  `json:"created_at"`
	Epoch         int64  `json:"epoch"`
	Stamped       bool   `json:"stamped"`
	CellCount     int    `json:"cell_count"`
	WALLastOffset uint64 `json:"wal_last_offset"`
	GridWidth     int    `json:"grid_width"`
	GridHeight    int    `json:"grid_height"`
}

type snapshotData struct {
	Cells        []domain.Cell `json:"cells"`
	Contributors []string      `json:"contributors,omitempty"`
}

var (
	ErrInvalidMagic     = errors.New("snapshot: invalid magic bytes")
	ErrChecksumMismatch = errors.New("snapshot: checksum mismatch")
	ErrNoSnapshots      = errors.New("snapshot: no snapshots available")
)

// Config configures the snapshot manager.
type Config struct {
	Dir            string
	RetentionCount int
}

// DefaultConfig returns the default configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		RetentionCount: DefaultRetentionCount,
	}
}

// Manager creates, loads and prunes snapshot files in one directory.
type Manager struct {
	cfg Config
	now func() time.Time
}

// NewManager creates the snapshot directory if needed.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("snapshot: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}
	if cfg.RetentionCount <= 0 {
		cfg.RetentionCount = DefaultRetentionCount
	}
	return &Manager{cfg: cfg, now: time.Now}, nil
}

// Info contains metadata about a snapshot.
type Info struct {
	ID string `json:"id"`

	// WALLastOffset is the composite WAL offset covered by this snapshot.
	WALLastOffset uint64 `json:"wal_last_offset"`

	Epoch     int64  `json:"epoch"`
	CellCount int    `json:"cell_count"`
	CreatedAt int64  `json:"created_at"`
	Size      int64  `json:"size"`
	Path      string `json:"path"`
	Checksum  string `json:"checksum"`
}

// Create writes state as a new snapshot covering the WAL up to walLastOffset.
func (m *Manager) Create(grid domain.Grid, state memory.State, walLastOffset uint64) (*Info, error) {
	now := m.now()
	id := m.generateID(now)

	hdrJSON, err := json.Marshal(snapshotHeader{
		Version:       headerVersion,
		CreatedAt:     now.UnixMilli(),
		Epoch:         state.Epoch,
		Stamped:       state.Stamped,
		CellCount:     len(state.Cells),
		WALLastOffset: walLastOffset,
		GridWidth:     grid.Width,
		GridHeight:    grid.Height,
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: marshal header: %w", err)
	}
	data, err := json.Marshal(snapshotData{Cells: state.Cells, Contributors: state.Contributors})
	if err != nil {
		return nil, fmt.Errorf("snapshot: marshal cells: %w", err)
	}

	tempPath := filepath.Join(m.cfg.Dir, id+".tmp")
	file, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer os.Remove(tempPath)

	hash := sha256.New()
	bw := bufio.NewWriter(io.MultiWriter(file, hash))
	writeBlock := func(b []byte) {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(b)))
		bw.Write(n[:])
		bw.Write(b)
	}

	bw.Write(magicBytes)
	writeBlock(hdrJSON)
	writeBlock(data)
	if err := bw.Flush(); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write: %w", err)
	}

	sum := hash.Sum(nil)
	if _, err := file.Write(sum); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write checksum: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("snapshot: close: %w", err)
	}

	stat, err := os.Stat(tempPath)
	if err != nil {
		return nil, err
	}
	finalPath := filepath.Join(m.cfg.Dir, id+fileExtension)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return nil, fmt.Errorf("snapshot: rename: %w", err)
	}

	return &Info{
		ID:            id,
		WALLastOffset: walLastOffset,
		Epoch:         state.Epoch,
		CellCount:     len(state.Cells),
		CreatedAt:     now.UnixMilli(),
		Size:          stat.Size(),
		Path:          finalPath,
		Checksum:      hex.EncodeToString(sum),
	}, nil
}

// Load returns the state in the newest valid snapshot, falling back to
// older ones when a file is corrupted.
func (m *Manager) Load() (memory.State, *Info, error) {
	infos, err := m.List()
	if err != nil {
		return memory.State{}, nil, err
	}

	for i := len(infos) - 1; i >= 0; i-- {
		state, info, err := m.loadFile(infos[i].Path)
		if err == nil {
			return state, info, nil
		}
		if errors.Is(err, ErrChecksumMismatch) || errors.Is(err, ErrInvalidMagic) {
			continue
		}
		return memory.State{}, nil, err
	}
	return memory.State{}, nil, ErrNoSnapshots
}

func (m *Manager) loadFile(path string) (memory.State, *Info, error) {
	var state memory.State

	raw, err := os.ReadFile(path)
	if err != nil {
		return state, nil, err
	}
	if len(raw) < len(magicBytes)+8+checksumSize {
		return state, nil, ErrChecksumMismatch
	}

	body, trailer := raw[:len(raw)-checksumSize], raw[len(raw)-checksumSize:]
	sum := sha256.Sum256(body)
	if !bytes.Equal(sum[:], trailer) {
		return state, nil, ErrChecksumMismatch
	}
	if !bytes.HasPrefix(body, magicBytes) {
		return state, nil, ErrInvalidMagic
	}

	rest := body[len(magicBytes):]
	readBlock := func() ([]byte, error) {
		if len(rest) < 4 {
			return nil, fmt.Errorf("snapshot: truncated block")
		}
		n := binary.BigEndian.Uint32(rest[:4])
		if uint64(len(rest)-4) < uint64(n) {
			return nil, fmt.Errorf("snapshot: truncated block")
		}
		b := rest[4 : 4+n]
		rest = rest[4+n:]
		return b, nil
	}

	hdrJSON, err := readBlock()
	if err != nil {
		return state, nil, err
	}
	var hdr snapshotHeader
	if err := json.Unmarshal(hdrJSON, &hdr); err != nil {
		return state, nil, fmt.Errorf("snapshot: unmarshal header: %w", err)
	}
	if hdr.Version != headerVersion {
		return state, nil, fmt.Errorf("snapshot: unsupported version %d", hdr.Version)
	}

	dataJSON, err := readBlock()
	if err != nil {
		return state, nil, err
	}
	var data snapshotData
	if err := json.Unmarshal(dataJSON, &data); err != nil {
		return state, nil, fmt.Errorf("snapshot: unmarshal cells: %w", err)
	}

	state = memory.State{
		Epoch:        hdr.Epoch,
		Stamped:      hdr.Stamped,
		Cells:        data.Cells,
		Contributors: data.Contributors,
	}
	info := &Info{
		ID:            strings.TrimSuffix(filepath.Base(path), fileExtension),
		WALLastOffset: hdr.WALLastOffset,
		Epoch:         hdr.Epoch,
		CellCount:     hdr.CellCount,
		CreatedAt:     hdr.CreatedAt,
		Size:          int64(len(raw)),
		Path:          path,
		Checksum:      hex.EncodeToString(trailer),
	}
	return state, info, nil
}

// List lists snapshot files oldest first (metadata from the file system only).
func (m *Manager) List() ([]*Info, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var infos []*Info
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExtension) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, &Info{
			ID:   strings.TrimSuffix(name, fileExtension),
			Path: filepath.Join(m.cfg.Dir, name),
			Size: fi.Size(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// Prune deletes all but the newest RetentionCount snapshots and returns how
// many were removed.
func (m *Manager) Prune() (int, error) {
	infos, err := m.List()
	if err != nil {
		return 0, err
	}
	excess := len(infos) - m.cfg.RetentionCount
	if excess <= 0 {
		return 0, nil
	}

	var errs []error
	for _, info := range infos[:excess] {
		if err := os.Remove(info.Path); err != nil {
			errs = append(errs, err)
		}
	}
	return excess - len(errs), errors.Join(errs...)
}

func (m *Manager) generateID(t time.Time) string {
	ts := t.UTC().Format("20060102150405")
	seq := 1

	entries, _ := os.ReadDir(m.cfg.Dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), filePrefix+ts+"-") {
			seq++
		}
	}
	return fmt.Sprintf("%s%s-%04d", filePrefix, ts, seq)
}
