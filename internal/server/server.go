// Package server exposes the HTTP and websocket surface of the board: login,
// document management, push subscription management, and the realtime
// endpoint the devices stay connected to.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"corkboard/internal/config"
	"corkboard/internal/logging"
	"corkboard/internal/pipeline"
	"corkboard/internal/push"
	"corkboard/internal/realtime"
	"corkboard/internal/session"
	"corkboard/internal/store"
)

// Server is the HTTP front of the board daemon.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	hub      *realtime.Hub
	sessions *session.Store
	push     push.Service
	pipeline *pipeline.Pipeline

	listener net.Listener
	server   *http.Server
}

// New assembles the server and its route table.
func New(cfg *config.Config, st *store.Store, hub *realtime.Hub, sessions *session.Store, pushSvc push.Service, pipe *pipeline.Pipeline, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "server"),
		store:    st,
		hub:      hub,
		sessions: sessions,
		push:     pushSvc,
		pipeline: pipe,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/api/logout", s.handleLogout)
	mux.HandleFunc("/api/documents", s.handleDocuments)
	mux.HandleFunc("/api/documents/", s.handleDocumentItem)
	mux.HandleFunc("/api/labels", s.handleLabels)
	mux.HandleFunc("/api/labels/", s.handleLabelItem)
	mux.HandleFunc("/api/push/subscribe", s.handleSubscribe)
	mux.HandleFunc("/api/push/unsubscribe", s.handleUnsubscribe)
	mux.HandleFunc("/api/alert", s.handleAlert)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebsocket)

	readTimeout := time.Duration(cfg.Server.ReadTimeout) * time.Second
	writeTimeout := time.Duration(cfg.Server.WriteTimeout) * time.Second
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving on the configured bind address.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Server.Bind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Server.Bind, err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound listen address, or empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	health, err := s.store.CheckHealth(r.Context())
	if err != nil {
		s.logger.Warn("health check degraded", logging.Error(err))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":          err == nil,
		"connections": s.hub.Registry.Count(),
		"sessions":    s.sessions.Count(),
		"documents":   health.Documents,
		"pushEnabled": s.push.Enabled(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug("response encode failed", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// pathSuffix extracts the remainder of the URL after a route prefix,
// rejecting empty or nested values.
func pathSuffix(path, prefix string) (string, bool) {
	suffix := strings.TrimPrefix(path, prefix)
	if suffix == "" || suffix == path {
		return "", false
	}
	return suffix, true
}
