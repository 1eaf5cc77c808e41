package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/yndnr/pixelsync/internal/telemetry/logger"
	"github.com/yndnr/pixelsync/pkg/token"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifyCanvas(&cfg.Canvas),
		verifyEpoch(&cfg.Epoch),
		verifyStorage(&cfg.Storage),
		verifyLimits(&cfg.Limits),
		verifySecurity(&cfg.Security),
		verifyLog(&cfg.Log),
		verifyBatchBudget(cfg),
	)
}

// verifyBatchBudget keeps a maximum-size batch within one full bucket of
// the per-session write limiter.
func verifyBatchBudget(cfg *ServerConfig) error {
	if cfg.Limits.WriteBurst > 0 && cfg.Limits.WriteBurst < cfg.Canvas.MaxBatch {
		return fmt.Errorf("limits.write_burst (%d) must be at least canvas.max_batch (%d)",
			cfg.Limits.WriteBurst, cfg.Canvas.MaxBatch)
	}
	return nil
}

func verifyServer(cfg *ServerSection) error {
	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		return fmt.Errorf("server.http.addr: %w", err)
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("server.http: tls_cert_file and tls_key_file must be set together")
	}
	for _, f := range []string{cfg.HTTP.TLSCertFile, cfg.HTTP.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("server.http: %w", err)
		}
	}

	ws := cfg.WebSocket
	if !strings.HasPrefix(ws.Path, "/") {
		return errors.New("server.websocket.path must start with /")
	}
	if ws.ReadLimit <= 0 || ws.SendBuffer <= 0 {
		return errors.New("server.websocket: read_limit and send_buffer must be positive")
	}
	if ws.WriteTimeout <= 0 || ws.PongWait <= 0 {
		return errors.New("server.websocket: write_timeout and pong_wait must be positive")
	}
	return nil
}

func verifyCanvas(cfg *CanvasSection) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("canvas: invalid grid %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.MaxBatch <= 0 {
		return errors.New("canvas.max_batch must be positive")
	}
	return nil
}

func verifyEpoch(cfg *EpochSection) error {
	if cfg.Anchor.IsZero() {
		return errors.New("epoch.anchor is required")
	}
	if cfg.Duration <= 0 {
		return errors.New("epoch.duration must be positive")
	}
	if cfg.CheckInterval <= 0 {
		return errors.New("epoch.check_interval must be positive")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return errors.New("cannot create data directory: " + err.Error())
	}
	if cfg.SnapshotKeep < 1 {
		return errors.New("storage.snapshot_keep must be at least 1")
	}
	if cfg.SnapshotInterval <= 0 || cfg.WALSyncInterval <= 0 {
		return errors.New("storage: snapshot_interval and wal_sync_interval must be positive")
	}
	switch cfg.ArchiveBackend {
	case "file", "badger":
	default:
		return fmt.Errorf("storage.archive_backend: unknown backend %q", cfg.ArchiveBackend)
	}
	return nil
}

func verifyLimits(cfg *LimitsSection) error {
	if cfg.WritesPerSecond <= 0 || cfg.WriteBurst <= 0 {
		return errors.New("limits: writes_per_second and write_burst must be positive")
	}
	if cfg.HTTPRateLimit < 0 {
		return errors.New("limits.http_rate_limit must not be negative")
	}
	return nil
}

func verifySecurity(cfg *SecuritySection) error {
	var errs []error
	if cfg.AdminTokenHash != "" {
		if err := token.ValidateHash(cfg.AdminTokenHash); err != nil {
			errs = append(errs, fmt.Errorf("security.admin_token_hash: %w", err))
		}
	}
	for _, entry := range cfg.AdminAllowList {
		if strings.Contains(entry, "/") {
			if _, _, err := net.ParseCIDR(entry); err != nil {
				errs = append(errs, fmt.Errorf("security.admin_allow_list: %w", err))
			}
			continue
		}
		if net.ParseIP(entry) == nil {
			errs = append(errs, fmt.Errorf("security.admin_allow_list: invalid IP %q", entry))
		}
	}
	return errors.Join(errs...)
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Format)
	}
	return nil
}
