package config

import (
	"time"

	"github.com/yndnr/pixelsync/internal/core/domain"
)

// Default configuration values.
const (
	DefaultHTTPAddr = "127.0.0.1:5080"

	DefaultWebSocketPath  = "/ws"
	DefaultReadLimit      = 64 << 10
	DefaultWriteTimeout   = 10 * time.Second
	DefaultPongWait       = 60 * time.Second
	DefaultSendBuffer     = 256
	DefaultMaxBatch       = 256
	DefaultArchiveBackend = "file"

	DefaultDataDir          = "/var/lib/pixelsync/data"
	DefaultSnapshotInterval = 30 * time.Second
	DefaultSnapshotKeep     = 3
	DefaultWALSyncInterval  = 100 * time.Millisecond

	DefaultWritesPerSecond = 20
	DefaultWriteBurst      = DefaultMaxBatch
	DefaultHTTPRateLimit   = 50

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr: DefaultHTTPAddr,
			},
			WebSocket: WebSocketConfig{
				Path:         DefaultWebSocketPath,
				ReadLimit:    DefaultReadLimit,
				WriteTimeout: DefaultWriteTimeout,
				PongWait:     DefaultPongWait,
				SendBuffer:   DefaultSendBuffer,
			},
		},
		Canvas: CanvasSection{
			Width:    domain.DefaultGridSize,
			Height:   domain.DefaultGridSize,
			MaxBatch: DefaultMaxBatch,
		},
		Epoch: EpochSection{
			Anchor:        domain.DefaultEpochAnchor,
			Duration:      domain.DefaultEpochDuration,
			CheckInterval: domain.DefaultCheckInterval,
		},
		Storage: StorageSection{
			DataDir:          DefaultDataDir,
			SnapshotInterval: DefaultSnapshotInterval,
			SnapshotKeep:     DefaultSnapshotKeep,
			WALSyncInterval:  DefaultWALSyncInterval,
			ArchiveBackend:   DefaultArchiveBackend,
		},
		Limits: LimitsSection{
			WritesPerSecond: DefaultWritesPerSecond,
			WriteBurst:      DefaultWriteBurst,
			HTTPRateLimit:   DefaultHTTPRateLimit,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Grid returns the configured canvas bounds.
func (c *ServerConfig) Grid() domain.Grid {
	return domain.Grid{Width: c.Canvas.Width, Height: c.Canvas.Height}
}

// Schedule returns the configured epoch calendar.
func (c *ServerConfig) Schedule() domain.Schedule {
	return domain.Schedule{Anchor: c.Epoch.Anchor, Duration: c.Epoch.Duration}
}
