// Package api exposes the HTTP surface of chatrelay: an OpenAI-compatible
// completions endpoint, the browser ingest WebSocket, and a health probe.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/chatrelay/chatrelay/pkg/config"
	"github.com/chatrelay/chatrelay/pkg/ingest"
	"github.com/chatrelay/chatrelay/pkg/session"
)

// Server wires the HTTP handlers to the ingest hub and session manager.
type Server struct {
	cfg      *config.Config
	hub      *ingest.Hub
	sessions *session.Manager

	echo       *echo.Echo
	httpServer *http.Server
}

// NewServer creates the API server and registers its routes.
func NewServer(cfg *config.Config, hub *ingest.Hub, sessions *session.Manager) *Server {
	s := &Server{
		cfg:      cfg,
		hub:      hub,
		sessions: sessions,
	}

	e := echo.New()
	e.Use(securityHeaders())
	e.Use(requestLogger())

	e.GET("/health", s.healthHandler)
	e.GET("/ws/browser", s.browserWSHandler)
	e.POST("/v1/chat/completions", s.completionsHandler)
	e.DELETE("/v1/sessions/active", s.cancelSessionHandler)

	s.echo = e
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start runs the HTTP listener and blocks until shutdown.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight requests
// up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
