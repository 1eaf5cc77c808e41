package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Sanitize returns a deep-enough copy of cfg that is safe to log. Slices
// are copied and the admin token hash keeps only its bcrypt version and
// cost.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	out := *cfg
	out.Server.WebSocket.AllowedOrigins = append([]string(nil), cfg.Server.WebSocket.AllowedOrigins...)
	out.Security.AdminAllowList = append([]string(nil), cfg.Security.AdminAllowList...)
	if cfg.Security.AdminTokenHash != "" {
		out.Security.AdminTokenHash = maskHash(cfg.Security.AdminTokenHash)
	}
	return &out
}

// maskHash keeps the "$2a$10$" header of a bcrypt hash and drops the
// salt and digest. Anything else is masked entirely.
func maskHash(h string) string {
	parts := strings.SplitN(h, "$", 4)
	if len(parts) == 4 && parts[0] == "" && strings.HasPrefix(parts[1], "2") && len(parts[2]) == 2 {
		return "$" + parts[1] + "$" + parts[2] + "$****"
	}
	return "****"
}

// LogValue renders the sanitized configuration as nested groups.
func (c *ServerConfig) LogValue() slog.Value {
	s := Sanitize(c)
	return slog.GroupValue(
		slog.Group("http",
			"addr", s.Server.HTTP.Addr,
			"tls", s.Server.HTTP.TLSCertFile != ""),
		slog.Group("websocket",
			"path", s.Server.WebSocket.Path,
			"send_buffer", s.Server.WebSocket.SendBuffer,
			"allowed_origins", s.Server.WebSocket.AllowedOrigins),
		slog.Group("canvas",
			"grid", fmt.Sprintf("%dx%d", s.Canvas.Width, s.Canvas.Height),
			"max_batch", s.Canvas.MaxBatch),
		slog.Group("epoch",
			"anchor", s.Epoch.Anchor,
			"duration", s.Epoch.Duration,
			"check_interval", s.Epoch.CheckInterval),
		slog.Group("storage",
			"data_dir", s.Storage.DataDir,
			"archive_backend", s.Storage.ArchiveBackend,
			"snapshot_interval", s.Storage.SnapshotInterval),
		slog.Group("security",
			"admin_token_hash", s.Security.AdminTokenHash,
			"admin_allow_list", s.Security.AdminAllowList),
	)
}
