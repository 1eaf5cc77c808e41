package config

import "time"

// ServerConfig is the root configuration for pixelsync-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Canvas   CanvasSection   `koanf:"canvas"`
	Epoch    EpochSection    `koanf:"epoch"`
	Storage  StorageSection  `koanf:"storage"`
	Limits   LimitsSection   `koanf:"limits"`
	Security SecuritySection `koanf:"security"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP      HTTPConfig      `koanf:"http"`
	WebSocket WebSocketConfig `koanf:"websocket"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
}

// WebSocketConfig configures the realtime endpoint.
type WebSocketConfig struct {
	Path string `koanf:"path"`

	// ReadLimit caps one inbound message in bytes.
	ReadLimit int64 `koanf:"read_limit"`

	WriteTimeout time.Duration `koanf:"write_timeout"`
	PongWait     time.Duration `koanf:"pong_wait"`

	// SendBuffer is the number of outbound events queued per session
	// before the session is dropped as too slow.
	SendBuffer int `koanf:"send_buffer"`

	// AllowedOrigins lists accepted Origin headers. Empty accepts
	// same-host requests only; "*" accepts any origin.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// CanvasSection configures the grid.
type CanvasSection struct {
	Width    int `koanf:"width"`
	Height   int `koanf:"height"`
	MaxBatch int `koanf:"max_batch"`
}

// EpochSection configures the epoch calendar.
type EpochSection struct {
	Anchor        time.Time     `koanf:"anchor"`
	Duration      time.Duration `koanf:"duration"`
	CheckInterval time.Duration `koanf:"check_interval"`
}

// StorageSection configures storage behavior.
type StorageSection struct {
	DataDir          string        `koanf:"data_dir"`
	SnapshotInterval time.Duration `koanf:"snapshot_interval"`
	SnapshotKeep     int           `koanf:"snapshot_keep"`
	WALSyncInterval  time.Duration `koanf:"wal_sync_interval"`

	// ArchiveBackend is "file" or "badger".
	ArchiveBackend string `koanf:"archive_backend"`
}

// LimitsSection configures rate limits.
type LimitsSection struct {
	// WritesPerSecond limits cell writes per websocket session.
	WritesPerSecond float64 `koanf:"writes_per_second"`
	WriteBurst      int     `koanf:"write_burst"`

	// HTTPRateLimit limits HTTP requests per second per client address.
	// Zero disables the limit.
	HTTPRateLimit float64 `koanf:"http_rate_limit"`
}

// SecuritySection configures security settings.
type SecuritySection struct {
	// AdminTokenHash is the bcrypt hash of the admin token. Empty disables
	// the admin API.
	AdminTokenHash string `koanf:"admin_token_hash"`

	// AdminAllowList restricts the admin API to these IPs or CIDRs.
	// Empty allows any address that presents the token.
	AdminAllowList []string `koanf:"admin_allow_list"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
