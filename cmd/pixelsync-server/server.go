package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/yndnr/pixelsync/internal/core/service"
	"github.com/yndnr/pixelsync/internal/infra/buildinfo"
	"github.com/yndnr/pixelsync/internal/infra/confloader"
	"github.com/yndnr/pixelsync/internal/infra/shutdown"
	"github.com/yndnr/pixelsync/internal/infra/tlsroots"
	"github.com/yndnr/pixelsync/internal/server/config"
	"github.com/yndnr/pixelsync/internal/server/httpserver"
	"github.com/yndnr/pixelsync/internal/server/httpserver/handler"
	"github.com/yndnr/pixelsync/internal/server/wsserver"
	"github.com/yndnr/pixelsync/internal/storage"
	"github.com/yndnr/pixelsync/internal/storage/archive"
	"github.com/yndnr/pixelsync/internal/telemetry/logger"
	"github.com/yndnr/pixelsync/internal/telemetry/metric"
)

// shutdownTimeout bounds the whole shutdown sequence, final snapshot included.
const shutdownTimeout = 30 * time.Second

// archiveDir is the archive location inside storage.data_dir.
const archiveDir = "archives"

type options struct {
	ConfigFile  string
	Overrides   map[string]any
	CheckConfig bool

	// Listener replaces the configured listen address. Tests use it.
	Listener net.Listener
}

// loadConfig layers defaults, the config file, PIXELSYNC_* variables and
// flag overrides, then validates the result.
func loadConfig(opts options) (*config.ServerConfig, *confloader.Loader, error) {
	var loaderOpts []confloader.Option
	if opts.ConfigFile != "" {
		loaderOpts = append(loaderOpts, confloader.WithConfigFile(opts.ConfigFile))
	}
	if len(opts.Overrides) > 0 {
		loaderOpts = append(loaderOpts, confloader.WithOverrides(opts.Overrides))
	}
	loader := confloader.NewLoader(loaderOpts...)

	cfg := config.Default()
	if err := loader.Load(cfg); err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}

func run(ctx context.Context, opts options) error {
	cfg, loader, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if opts.CheckConfig {
		fmt.Fprintln(os.Stdout, "configuration OK")
		return nil
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting pixelsync-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", opts.ConfigFile,
	)
	log.Info("effective configuration", "config", cfg)

	sd := shutdown.NewHandler(shutdownTimeout)
	sd.SetLogger(log)

	// On a startup failure every hook registered so far still runs.
	abort := func(err error) error {
		sd.Trigger()
		return errors.Join(err, sd.Wait(context.Background()))
	}

	metrics := metric.NewRegistry()

	storageCfg := storage.DefaultConfig(cfg.Storage.DataDir)
	storageCfg.Grid = cfg.Grid()
	storageCfg.WAL.SyncInterval = cfg.Storage.WALSyncInterval
	storageCfg.Snapshot.RetentionCount = cfg.Storage.SnapshotKeep
	storageCfg.Logger = log
	storageCfg.OnError = func(op string, _ error) {
		metrics.ObservePersistFailure(op)
	}
	engine, err := storage.New(storageCfg)
	if err != nil {
		return abort(fmt.Errorf("init storage: %w", err))
	}
	sd.OnShutdown("storage", func(context.Context) error {
		return engine.Close()
	})

	restored, err := engine.Restore(ctx)
	if err != nil {
		return abort(fmt.Errorf("restore canvas: %w", err))
	}

	archives, err := archive.Open(archive.Config{
		Backend: cfg.Storage.ArchiveBackend,
		Dir:     filepath.Join(cfg.Storage.DataDir, archiveDir),
		Badger:  archive.DefaultBadgerConfig(),
	}, log)
	if err != nil {
		return abort(fmt.Errorf("open archive store: %w", err))
	}
	sd.OnShutdown("archives", func(context.Context) error {
		return archives.Close()
	})
	if bs, ok := archives.(*archive.BadgerStore); ok {
		if err := bs.RegisterMetrics(metrics.Registerer()); err != nil {
			log.Warn("badger metrics not registered", "error", err)
		}
	}

	coord, err := service.New(service.Config{
		Store:         engine,
		Archives:      archives,
		Schedule:      cfg.Schedule(),
		CheckInterval: cfg.Epoch.CheckInterval,
		FlushInterval: cfg.Storage.SnapshotInterval,
		MaxBatch:      cfg.Canvas.MaxBatch,
		Metrics:       metrics,
		Logger:        log,
	})
	if err != nil {
		return abort(fmt.Errorf("init coordinator: %w", err))
	}
	if err := coord.Start(ctx, restored.Archives...); err != nil {
		return abort(fmt.Errorf("start coordinator: %w", err))
	}
	sd.OnShutdown("coordinator", coord.Close)

	if err := metrics.RegisterSource(liveStats{coord: coord, canvas: engine}); err != nil {
		log.Warn("live gauges not registered", "error", err)
	}

	ws := wsserver.New(wsserver.Config{
		ReadLimit:       cfg.Server.WebSocket.ReadLimit,
		WriteTimeout:    cfg.Server.WebSocket.WriteTimeout,
		PongWait:        cfg.Server.WebSocket.PongWait,
		SendBuffer:      cfg.Server.WebSocket.SendBuffer,
		AllowedOrigins:  cfg.Server.WebSocket.AllowedOrigins,
		WritesPerSecond: cfg.Limits.WritesPerSecond,
		WriteBurst:      cfg.Limits.WriteBurst,
		MaxBatch:        cfg.Canvas.MaxBatch,
		Logger:          logger.Component(log, "websocket"),
	}, coord)
	sd.OnShutdown("websocket", ws.Shutdown)

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Handler: handler.New(handler.Config{
			Coordinator: coord,
			Archives:    archives,
			Logger:      logger.Component(log, "api"),
		}),
		WebSocket:          ws,
		WebSocketPath:      cfg.Server.WebSocket.Path,
		Metrics:            metrics.Handler(),
		RequestMetrics:     metrics,
		Logger:             logger.Component(log, "http"),
		RateLimit:          cfg.Limits.HTTPRateLimit,
		AdminTokenHash:     cfg.Security.AdminTokenHash,
		AdminAllowList:     cfg.Security.AdminAllowList,
		CORSAllowedOrigins: cfg.Server.WebSocket.AllowedOrigins,
	})

	tlsConfig, err := setupTLS(cfg, sd, log)
	if err != nil {
		return abort(err)
	}

	ln := opts.Listener
	if ln == nil {
		if ln, err = net.Listen("tcp", cfg.Server.HTTP.Addr); err != nil {
			return abort(fmt.Errorf("listen: %w", err))
		}
	}
	srv := httpserver.New(ln.Addr().String(), router, tlsConfig)
	// Stops accepting before the websocket and coordinator hooks run.
	sd.OnShutdown("http", srv.Shutdown)

	go func() {
		log.Info("HTTP server listening",
			"addr", ln.Addr().String(),
			"tls", tlsConfig != nil,
			"websocket_path", cfg.Server.WebSocket.Path,
		)
		if err := srv.Serve(ln); err != nil {
			log.Error("HTTP server error", "error", err)
			sd.Trigger()
		}
	}()

	if loader.FilePath() != "" {
		if err := watchConfig(loader, sd, log); err != nil {
			log.Warn("config hot reload disabled", "error", err)
		}
	}

	log.Info("server started",
		"epoch", coord.ActiveEpoch(),
		"restored_cells", restored.Cells,
		"replayed_entries", restored.Replayed,
	)
	if err := sd.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

// setupTLS returns nil when TLS is not configured.
func setupTLS(cfg *config.ServerConfig, sd *shutdown.Handler, log *slog.Logger) (*tls.Config, error) {
	if cfg.Server.HTTP.TLSCertFile == "" {
		return nil, nil
	}
	w, err := tlsroots.NewWatcher(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile,
		tlsroots.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("load TLS key pair: %w", err)
	}
	w.StartAsync()
	sd.OnShutdown("tls-watcher", func(context.Context) error {
		return w.Stop()
	})
	return w.ServerTLSConfig(), nil
}

// watchConfig applies log level changes from the config file. Other
// settings are read at startup only.
func watchConfig(loader *confloader.Loader, sd *shutdown.Handler, log *slog.Logger) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return err
	}
	if err := w.Watch(loader.FilePath()); err != nil {
		w.Stop()
		return err
	}
	w.OnChange(func(path string) {
		next := config.Default()
		if err := loader.Load(next); err != nil {
			log.Error("config reload failed", "path", path, "error", err)
			return
		}
		if err := config.Verify(next); err != nil {
			log.Error("reloaded config is invalid, keeping current", "path", path, "error", err)
			return
		}
		if err := logger.SetLevel(next.Log.Level); err != nil {
			log.Error("config reload: bad log level", logger.Err(err))
			return
		}
		log.Info("configuration reloaded", "path", path, "log_level", next.Log.Level)
	})
	w.StartAsync()
	sd.OnShutdown("config-watcher", func(context.Context) error {
		return w.Stop()
	})
	return nil
}
