// Package web provides the local HTTP API serving synchronization status,
// document generation and document download to the desktop client.
package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/lilnaht/excelfile-automation/internal/config"
	"github.com/lilnaht/excelfile-automation/internal/forecast"
	"github.com/lilnaht/excelfile-automation/internal/store"
	"github.com/lilnaht/excelfile-automation/internal/web/middleware"
)

// Generator renders a cost-forecast document for a process key.
type Generator interface {
	Generate(ctx context.Context, processKey string) (forecast.Result, error)
}

// Server is the HTTP server for the cost-forecast API.
type Server struct {
	store         store.Store
	generator     Generator
	generatedRoot string
	router        *chi.Mux
	server        *http.Server
	cfg           *config.Config
}

// NewServer creates a Server wired to the store and generator.
func NewServer(st store.Store, gen Generator, cfg *config.Config) *Server {
	s := &Server{
		store:         st,
		generator:     gen,
		generatedRoot: cfg.Source.GeneratedRoot,
		router:        chi.NewRouter(),
		cfg:           cfg,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/status", s.handleStatus)
	s.router.Post("/generate-file", s.handleGenerateFile)
	s.router.Get("/download-file/{fileName}", s.handleDownloadFile)
	s.router.Get("/last-update", s.handleLastUpdate)
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds baseline security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}
