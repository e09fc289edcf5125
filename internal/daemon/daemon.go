// Package daemon assembles the board server: persistence, realtime hub,
// session store, push delivery, processing pipeline, and the HTTP surface.
// It enforces single-instance execution with a file lock.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"corkboard/internal/config"
	"corkboard/internal/logging"
	"corkboard/internal/pipeline"
	"corkboard/internal/push"
	"corkboard/internal/realtime"
	"corkboard/internal/render"
	"corkboard/internal/server"
	"corkboard/internal/session"
	"corkboard/internal/store"
)

// ErrAlreadyRunning indicates another daemon instance holds the lock.
var ErrAlreadyRunning = errors.New("another corkboard instance is already running")

// Daemon owns the lifecycle of all board services.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	store    *store.Store
	hub      *realtime.Hub
	sessions *session.Store
	push     push.Service
	pipeline *pipeline.Pipeline
	server   *server.Server
	monitor  *realtime.Monitor

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New wires the daemon together without starting anything.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	converter, err := render.New(
		cfg.Processing.PDFRenderBinary,
		cfg.Processing.DarkModeCommand,
		cfg.Processing.OCRBinary,
	)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("configure converter: %w", err)
	}

	pushSvc := push.NewService(cfg, st, logger)

	hub := realtime.NewHub(realtime.HubOptions{
		Identity:   realtime.IdentityForStrategy(cfg.Realtime.DeviceIdentity),
		SendBuffer: cfg.Realtime.SendBuffer,
		Notifier:   pushSvc,
		Logger:     logger,
	})

	cutoffDay, cutoffHour := cfg.SessionCutoff()
	sessions := session.NewStore(cutoffDay, cutoffHour, hub.Dispatcher, logger)

	pipe := pipeline.New(st, converter, hub.Dispatcher, pipeline.Options{
		RenderDir:    cfg.Paths.RenderDir,
		RenderDPI:    cfg.Processing.RenderDPI,
		ThumbnailDPI: cfg.Processing.ThumbnailDPI,
		StageTimeout: time.Duration(cfg.Processing.StageTimeout) * time.Second,
	}, logger)

	srv := server.New(cfg, st, hub, sessions, pushSvc, pipe, logger)

	monitor := realtime.NewMonitor(
		hub.Registry,
		hub.Dispatcher,
		time.Duration(cfg.Realtime.HeartbeatInterval)*time.Second,
		logger,
	)

	lockPath := filepath.Join(cfg.Paths.DataDir, "corkboard.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    st,
		hub:      hub,
		sessions: sessions,
		push:     pushSvc,
		pipeline: pipe,
		server:   srv,
		monitor:  monitor,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the server and heartbeat
// monitor.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already started")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.server.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	go d.monitor.Run(runCtx)

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("bind", d.cfg.Server.Bind),
		logging.String("data_dir", d.cfg.Paths.DataDir),
		logging.Bool("push_enabled", d.push.Enabled()))
	return nil
}

// Stop shuts everything down in dependency order: HTTP first so no new
// uploads arrive, then in-flight pipeline stages, then storage.
func (d *Daemon) Stop() {
	if !d.running.Swap(false) {
		return
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.server.Stop()
	d.pipeline.Wait()
	if err := d.store.Close(); err != nil {
		d.logger.Warn("store close failed", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("lock release failed", logging.Error(err))
	}
	d.logger.Info("daemon stopped")
}

// Running reports whether Start has succeeded and Stop has not yet run.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Addr returns the bound HTTP address once started.
func (d *Daemon) Addr() string {
	return d.server.Addr()
}

// LockPath returns the instance lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}
