package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP front of the qualification system. All real work is
// delegated to the injected services; handlers only translate requests.
type Server struct {
	httpServer *http.Server
}

func New(addr string, h *Handlers) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/search", h.Search)
		r.Get("/search/filters", h.SearchFilters)

		r.Post("/websites/import-csv", h.ImportCSV)
		r.Get("/websites", h.ListWebsites)

		r.Get("/imports/{id}/status", h.ImportStatus)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/dashboard", h.Dashboard)
			r.Get("/websites/{id}", h.AdminWebsite)
			r.Delete("/websites/{id}", h.DeleteWebsite)
		})
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
	}
}

// Start blocks until the server stops.
func (s *Server) Start() error {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
