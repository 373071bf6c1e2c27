// Package server is the development server: it serves the output tree,
// injects a live-reload client into HTML pages and tells connected browsers
// to reload after each successful rebuild. It can instead proxy an upstream
// server, such as a PHP runtime serving the output tree.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/conneroisu/simplest/internal/config"
	"github.com/conneroisu/simplest/internal/logging"
	"github.com/conneroisu/simplest/internal/metrics"
	"github.com/conneroisu/simplest/internal/version"
)

// Server serves a built site during development.
type Server struct {
	cfg      *config.Config
	logger   logging.Logger
	registry *prom.Registry
	hub      *Hub
	handler  http.Handler
	started  time.Time

	mu           sync.RWMutex
	httpServer   *http.Server
	addr         string
	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry serves reg on /metrics.
func WithRegistry(reg *prom.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// New creates a server for cfg.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		logger:  logging.NewNopLogger(),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("server")
	s.hub = newHub(s.logger, cfg.Server.Port)

	site := http.Handler(newStaticHandler(cfg, cfg.Server.LiveReload))
	if cfg.Server.Proxy != "" {
		proxy, err := newProxy(cfg.Server.Proxy, cfg.Server.LiveReload)
		if err != nil {
			return nil, err
		}
		site = proxy
	}

	mux := http.NewServeMux()
	if cfg.Server.LiveReload {
		mux.Handle(ReloadPath, s.hub)
	}
	mux.Handle("/metrics", metrics.HTTPHandler(s.registry))
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/", site)

	s.handler = s.logRequests(mux)
	return s, nil
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the live-reload hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Addr returns the address the server listens on once Start has bound it.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Start listens and serves until ctx is done or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	url := "http://" + s.Addr()
	s.logger.Info(ctx, "Serving site", "url", url, "output", s.cfg.Output, "proxy", s.cfg.Server.Proxy)
	if s.cfg.Server.Open {
		go s.openBrowser(ctx, url)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(shutdownCtx, err, "Server shutdown failed")
		}
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// NotifyReload tells every connected browser to reload.
func (s *Server) NotifyReload(ctx context.Context, paths []string) {
	if !s.cfg.Server.LiveReload {
		return
	}
	s.hub.Broadcast(ctx, Message{Type: "reload", Paths: paths, Timestamp: time.Now()})
	s.logger.Debug(ctx, "Reload sent", "clients", s.hub.Clients(), "paths", len(paths))
}

// Shutdown disconnects live-reload clients and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.hub.close()

		s.mu.RLock()
		srv := s.httpServer
		s.mu.RUnlock()
		if srv != nil {
			err = srv.Shutdown(ctx)
		}
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"version":   version.Get().Short(),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"clients":   s.hub.Clients(),
		"output":    s.cfg.Output,
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to encode health response")
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "Request", "method", r.Method, "path", r.URL.Path,
			"duration", time.Since(start))
	})
}

func (s *Server) openBrowser(ctx context.Context, url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		s.logger.Warn(ctx, nil, "Cannot open a browser on this platform", "os", runtime.GOOS)
		return
	}

	if err := cmd.Start(); err != nil {
		s.logger.Warn(ctx, err, "Failed to open browser", "url", url)
		return
	}
	go cmd.Wait()
}
