package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yndnr/pixelsync/internal/core/domain"
)

const (
	filePrefix    = "pixels-epoch-"
	fileExtension = ".json"
)

// FileStore keeps one JSON file per archived epoch.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive: dir is required")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("archive: create dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func fileName(epoch int64) string {
	return fmt.Sprintf("%s%d%s", filePrefix, epoch, fileExtension)
}

func (s *FileStore) path(epoch int64) string {
	return filepath.Join(s.dir, fileName(epoch))
}

// Ref returns the file name of the epoch's record. The archive directory
// stays off the wire.
func (s *FileStore) Ref(epoch int64) string {
	return fileName(epoch)
}

// Put writes rec to a temp file and links it into place. The link fails if
// the target exists, so concurrent or repeated puts cannot overwrite.
func (s *FileStore) Put(_ context.Context, rec *domain.ArchiveRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: marshal: %w", err)
	}

	final := s.path(rec.EpochNumber)
	if _, err := os.Stat(final); err == nil {
		return domain.ErrArchiveExists.WithDetails(fmt.Sprintf("epoch %d", rec.EpochNumber))
	}

	tmp, err := os.CreateTemp(s.dir, ".archive-*.tmp")
	if err != nil {
		return fmt.Errorf("archive: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("archive: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("archive: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("archive: close: %w", err)
	}

	if err := os.Link(tmp.Name(), final); err != nil {
		if errors.Is(err, os.ErrExist) {
			return domain.ErrArchiveExists.WithDetails(fmt.Sprintf("epoch %d", rec.EpochNumber))
		}
		return fmt.Errorf("archive: link: %w", err)
	}
	return nil
}

// Get reads the record for epoch.
func (s *FileStore) Get(_ context.Context, epoch int64) (*domain.ArchiveRecord, error) {
	data, err := os.ReadFile(s.path(epoch))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrArchiveNotFound.WithDetails(fmt.Sprintf("epoch %d", epoch))
		}
		return nil, fmt.Errorf("archive: read: %w", err)
	}

	var rec domain.ArchiveRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("archive: decode epoch %d: %w", epoch, err)
	}
	return &rec, nil
}

// List reads every record in the directory. Unparseable files are skipped.
func (s *FileStore) List(ctx context.Context) ([]domain.ArchiveSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("archive: read dir: %w", err)
	}

	var out []domain.ArchiveSummary
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExtension) {
			continue
		}
		var epoch int64
		if _, err := fmt.Sscanf(name, filePrefix+"%d"+fileExtension, &epoch); err != nil {
			continue
		}
		rec, err := s.Get(ctx, epoch)
		if err != nil {
			continue
		}
		out = append(out, rec.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EpochNumber < out[j].EpochNumber })
	return out, nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}
