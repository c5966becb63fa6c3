// Package server exposes the shader index over a read-only JSON API:
// paginated browse, structured search, per-shader detail, tag and kind
// enumerations, plus health and Prometheus endpoints. Index updates
// arrive through handle swaps, never through the API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/shaderdex/shaderdex/internal/config"
	sderrors "github.com/shaderdex/shaderdex/internal/errors"
	"github.com/shaderdex/shaderdex/internal/query"
)

const shutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	// Config is the server section of the resolved configuration.
	// Zero fields fall back to defaults.
	Config config.ServerConfig

	// Engine evaluates structured queries and exposes the published
	// snapshot. Required.
	Engine *query.Engine

	// FromCache reports whether the initial snapshot was loaded from
	// the persisted blob; surfaced by /healthz.
	FromCache bool
}

// Server serves the shader corpus over HTTP.
type Server struct {
	cfg       config.ServerConfig
	engine    *query.Engine
	fromCache bool
	metrics   *Metrics
	cache     *queryCache

	httpServer *http.Server
	listener   net.Listener
}

// New builds a Server and its router.
func New(opts Options) (*Server, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("query engine is required")
	}

	cfg := opts.Config
	if cfg.Addr == "" {
		cfg.Addr = ":8081"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if cfg.MaxPageSize < cfg.PageSize {
		cfg.MaxPageSize = cfg.PageSize
	}

	s := &Server{
		cfg:       cfg,
		engine:    opts.Engine,
		fromCache: opts.FromCache,
		cache:     newQueryCache(cfg.QueryCache),
	}
	s.metrics = newMetrics(func() float64 {
		if snap := s.engine.Snapshot(); snap != nil {
			return float64(snap.Len())
		}
		return 0
	})
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the router. Tests drive it directly through
// httptest without binding a port.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Metrics returns the server's instruments so the watch loop can
// record index rebuilds.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Listen binds the configured address. Run calls it when the caller
// has not; binding separately lets callers learn the port (Addr)
// before serving starts.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return sderrors.Wrap(sderrors.ErrCodeServerStart, err).WithDetail("addr", s.cfg.Addr)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address once Listen has succeeded, the
// configured address before that.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// Run serves until ctx is canceled, then drains in-flight requests.
// A clean shutdown returns nil.
func (s *Server) Run(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(s.listener)
	}()

	slog.Info("server_listening", "addr", s.Addr())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		<-errCh
		slog.Info("server_stopped")
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return sderrors.Wrap(sderrors.ErrCodeServerStart, err).WithDetail("addr", s.cfg.Addr)
		}
		return nil
	}
}
