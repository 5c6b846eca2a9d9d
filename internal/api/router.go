// Package api exposes the design pipeline as an HTTP service: submit a
// design job, poll its status, fetch and download its outputs. Interactive
// documentation is served at /docs.
package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"abforge/internal/job"
	"abforge/internal/precheck"
)

// NewRouter wires the API routes. checker is optional (see NewHandler).
func NewRouter(log *zap.Logger, jobs *job.Manager, checker *precheck.Checker) *chi.Mux {
	h := NewHandler(log, jobs, checker)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(log))
	r.Use(cors)
	r.Use(chimw.Recoverer)

	r.Get("/health", h.Health)

	r.Post("/design", h.CreateDesign)
	r.Post("/design/upload", h.CreateDesignUpload)

	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", h.ListJobs)
		r.Route("/{jobID}", func(r chi.Router) {
			r.Get("/", h.GetJob)
			r.Get("/results", h.GetJobResults)
			r.Get("/download/{filename}", h.DownloadFile)
		})
	})

	r.Get("/docs", h.Docs)
	r.Get("/openapi.json", h.OpenAPISpec)

	return r
}
