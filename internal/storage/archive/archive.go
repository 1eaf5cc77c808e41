package archive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yndnr/pixelsync/internal/core/domain"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// Store persists archive records.
type Store interface {
	// Put writes rec. It fails with domain.ErrArchiveExists if the epoch is
	// already archived.
	Put(ctx context.Context, rec *domain.ArchiveRecord) error

	// Get returns the record for epoch or domain.ErrArchiveNotFound.
	Get(ctx context.Context, epoch int64) (*domain.ArchiveRecord, error)

	// List returns summaries ordered by epoch.
	List(ctx context.Context) ([]domain.ArchiveSummary, error)

	// Ref names the record for epoch, for clients and logs. It is relative
	// to the store and never includes a host path.
	Ref(epoch int64) string

	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend string
	Dir     string
	Badger  BadgerConfig
}

// Open creates the configured store.
func Open(cfg Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Backend {
	case "", BackendFile:
		return NewFileStore(cfg.Dir)
	case BackendBadger:
		return NewBadgerStore(cfg.Dir, cfg.Badger, logger)
	default:
		return nil, fmt.Errorf("archive: unknown backend %q", cfg.Backend)
	}
}
