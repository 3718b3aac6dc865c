package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"clipforge/internal/export"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/projects"
)

// ServerConfig wires the HTTP surface to its collaborators.
type ServerConfig struct {
	Bind         string
	APIToken     string
	LogPath      string
	Store        *projects.Store
	Orchestrator *export.Orchestrator
	Notifier     notifications.Service
	Logger       *slog.Logger
	StartTime    time.Time
}

// Server is the daemon's HTTP front end.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	logger     *slog.Logger
}

// NewServer builds the server without binding the port.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.StartTime.IsZero() {
		cfg.StartTime = time.Now()
	}
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Bind,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

// Start binds the configured address and serves until Shutdown.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.logger.Info("starting HTTP server", "addr", listener.Addr().String())
	err = s.httpServer.Serve(listener)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and drains in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Addr reports the bound address, useful when the bind port is 0.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}
