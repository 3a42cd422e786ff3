/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, the middleware stack, and the route table.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the report frontend

SECURITY NOTE:
  No authentication middleware. The service is meant to sit behind a
  workspace proxy that authenticates; all endpoints here are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{id}/overrides", h.GetOverrides)
			r.Put("/{id}/overrides", h.PutOverrides)
		})

		r.Get("/entries", h.ListEntries)
		r.Post("/entries", h.ImportEntries)
		r.Post("/holidays", h.AddHoliday)
		r.Post("/timeoff", h.AddTimeOff)

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.GetSettings)
			r.Put("/", h.PutSettings)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Post("/", h.RunReport)
			r.Get("/csv", h.ReportCSV)
		})
	})

	return r
}
