package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"clipforge/internal/api"
	"clipforge/internal/config"
	"clipforge/internal/deps"
	"clipforge/internal/export"
	"clipforge/internal/logging"
	"clipforge/internal/projects"
	"clipforge/internal/staging"
)

const (
	shutdownGrace = 10 * time.Second
	// Scratch dirs younger than this are assumed to belong to a live
	// export and are left alone.
	scratchMinAge = time.Minute
)

// Daemon ties the project store, export orchestrator, and HTTP server
// together and enforces single-instance execution through a lock file.
type Daemon struct {
	cfg          *config.Config
	logger       *slog.Logger
	store        *projects.Store
	orchestrator *export.Orchestrator
	server       *api.Server

	lockPath string
	lock     *flock.Flock

	running  atomic.Bool
	serveErr chan error
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *projects.Store, orchestrator *export.Orchestrator, server *api.Server, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || orchestrator == nil || server == nil {
		return nil, errors.New("daemon requires config, store, orchestrator, and server")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "clipforged.lock")
	return &Daemon{
		cfg:          cfg,
		logger:       logger,
		store:        store,
		orchestrator: orchestrator,
		server:       server,
		lockPath:     lockPath,
		lock:         flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, reconciles exports interrupted by a
// previous shutdown, and begins serving the API in the background.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipforge daemon instance is already running")
	}

	for _, status := range deps.Missing(deps.CheckBinaries(deps.Requirements(d.cfg))) {
		d.logger.Warn("required binary unavailable",
			logging.String("name", status.Name),
			logging.String("detail", status.Detail))
	}

	reset, err := d.store.ResetStuckRendering(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("reconcile interrupted exports: %w", err)
	}
	if reset > 0 {
		d.logger.Warn("marked interrupted exports failed",
			logging.Int64("projects", reset))
	}

	sweep := staging.SweepAttemptDirs(d.cfg.Paths.WorkDir, scratchMinAge, d.logger)
	if len(sweep.Removed) > 0 {
		d.logger.Info("swept leftover export scratch space",
			logging.Int("directories", len(sweep.Removed)))
	}

	d.serveErr = make(chan error, 1)
	go func() {
		d.serveErr <- d.server.Start()
	}()

	d.running.Store(true)
	d.logger.Info("clipforge daemon started",
		logging.String("lock", d.lockPath),
		logging.String("bind", d.cfg.Paths.APIBind))
	return nil
}

// Wait blocks until the HTTP server exits or the context is cancelled.
func (d *Daemon) Wait(ctx context.Context) error {
	if !d.running.Load() {
		return errors.New("daemon not running")
	}
	select {
	case err := <-d.serveErr:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Stop drains the HTTP server, cancels in-flight exports, and releases
// the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("HTTP server shutdown", logging.Error(err))
	}
	d.orchestrator.Shutdown()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("clipforge daemon stopped")
}

// Close stops the daemon and closes the project store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr reports the bound API address once the server is listening.
func (d *Daemon) Addr() string {
	return d.server.Addr()
}

// LockFilePath reports the single-instance lock location.
func (d *Daemon) LockFilePath() string {
	return d.lockPath
}
