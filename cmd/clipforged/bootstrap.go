package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"clipforge/internal/api"
	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/export"
	"clipforge/internal/notifications"
	"clipforge/internal/projects"
	"clipforge/internal/render"
	"clipforge/internal/upload"
)

// bootstrap wires the project store, renderer, uploader, orchestrator,
// and HTTP server into a runnable daemon.
func bootstrap(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	store, err := projects.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open project store: %w", err)
	}

	invoker := render.NewFFmpeg(render.WithBinary(cfg.FFmpegBinary()))

	httpStore, err := upload.NewHTTPStore(upload.HTTPStoreOptions{
		Endpoint:      cfg.Upload.Endpoint,
		Bucket:        cfg.Upload.Bucket,
		PublicBaseURL: cfg.Upload.PublicBaseURL,
		Timeout:       time.Duration(cfg.Upload.TimeoutMinutes) * time.Minute,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("configure upload store: %w", err)
	}
	uploader := upload.NewDriver(httpStore, upload.DriverOptions{
		MaxRetries: cfg.Upload.MaxRetries,
		Backoff:    time.Duration(cfg.Upload.RetryBackoffMS) * time.Millisecond,
		Logger:     logger,
	})

	orchestrator := export.New(store, invoker, uploader, cfg, logger)

	server := api.NewServer(api.ServerConfig{
		Bind:         cfg.Paths.APIBind,
		APIToken:     cfg.Paths.APIToken,
		LogPath:      filepath.Join(cfg.Paths.LogDir, "clipforge.log"),
		Store:        store,
		Orchestrator: orchestrator,
		Notifier:     notifications.NewService(cfg),
		Logger:       logger,
	})

	d, err := daemon.New(cfg, store, orchestrator, server, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return d, nil
}
