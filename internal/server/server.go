// Package server wires the HTTP surface: routing, middleware, and the
// uniform JSON error envelope for unmatched routes.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/billy784512/azure-blob-video-translator/internal/errors"
	"github.com/billy784512/azure-blob-video-translator/internal/server/handlers"
	"github.com/billy784512/azure-blob-video-translator/internal/server/middleware"
)

// Server hosts the HTTP API.
type Server struct {
	host   string
	port   int
	router chi.Router
	http   *http.Server
}

// New builds a server with the health and version routes registered.
// Pipeline routes are mounted separately via MountPipeline.
func New(host string, port int) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestLogger)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeEnvelope(w, req, http.StatusNotFound, "NOT_FOUND",
			fmt.Sprintf("no route for %s %s", req.Method, req.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeEnvelope(w, req, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("method %s not allowed for %s", req.Method, req.URL.Path))
	})

	r.Get("/health", handlers.HealthHandler)
	r.Get("/health/live", handlers.LivenessHandler)
	r.Get("/health/ready", handlers.ReadinessHandler)
	r.Get("/health/startup", handlers.StartupHandler)
	r.Get("/version", handlers.VersionHandler)

	return &Server{host: host, port: port, router: r}
}

// MountPipeline registers the translation API routes.
func (s *Server) MountPipeline(h *handlers.Pipeline) {
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/translate", h.Translate)
		r.Post("/split", h.Split)
	})
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured listen port.
func (s *Server) Port() int {
	return s.port
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.host, s.port)
}

// ListenAndServe blocks serving HTTP until Shutdown or failure.
func (s *Server) ListenAndServe() error {
	s.http = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	resp := apperrors.HTTPErrorResponse{
		Error: apperrors.HTTPErrorBody{
			Code:      code,
			Message:   message,
			RequestID: middleware.GetRequestID(r.Context()),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
