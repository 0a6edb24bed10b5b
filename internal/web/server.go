package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/faceswap/internal/config"
	"github.com/kozaktomas/faceswap/internal/web/handlers"
	"github.com/kozaktomas/faceswap/internal/web/middleware"
)

// Server represents the panel web server
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server
	panels     *handlers.PanelsHandler
	metrics    *Metrics
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, services handlers.PanelServices) *Server {
	r := chi.NewRouter()
	metrics := NewMetrics()

	s := &Server{
		config:  cfg,
		router:  r,
		panels:  handlers.NewPanelsHandler(cfg, services, metrics),
		metrics: metrics,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Web.AllowedOrigins))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port),
		Handler:     r,
		ReadTimeout: 5 * time.Minute, // media uploads
		IdleTimeout: 60 * time.Second,
		// no WriteTimeout: event streams stay open for the panel's lifetime
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown closes every panel and gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	s.panels.CloseAll()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
