package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/faceswap/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	panels := s.panels

	// Health check and metrics
	s.router.Get("/api/v1/health", handlers.HealthCheck)
	s.router.Method("GET", "/metrics", s.metrics.Handler())

	s.router.Route("/api/v1/panels", func(r chi.Router) {
		r.Post("/", panels.Open)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", panels.Get)
			r.Delete("/", panels.Close)
			r.Put("/params", panels.Params)
			r.Get("/events", panels.Events)
			r.Post("/submit", panels.Submit)

			r.Route("/slots/{role}", func(r chi.Router) {
				r.Post("/media", panels.LoadMedia)
				r.Get("/preview", panels.Preview)
				r.Post("/click", panels.Click)
				r.Delete("/selection", panels.ClearSelection)
				r.Put("/timeline", panels.Timeline)
			})
		})
	})
}
