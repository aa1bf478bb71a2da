/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. Logger:     zap request log (RequestLogger)
  4. Metrics:    Prometheus request counter and latency
  5. CORS:       Cross-origin requests for the frontend
  6. Actor:      Caller resolved from X-Actor-* headers

ROUTE GROUPS:
  /health               Liveness plus storage ping
  /metrics              Prometheus exposition
  /api/collaborators/*  Collaborator management and balances
  /api/entries/*        Ledger entries
  /api/holidays/*       Holiday registry
  /api/import/*         CSV import, history and template
  /api/*                Reports, calculator and audit
  /*                    Static files (frontend), when configured

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Actor resolution and request logging
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string

	// Gatherer backs /metrics. Nil means the default registry.
	Gatherer prometheus.Gatherer

	// StaticDir holds a built frontend. Empty or missing disables it.
	StaticDir string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(h.Logger))
	if h.Metrics != nil {
		r.Use(h.Metrics.Middleware)
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type",
			HeaderActorID, HeaderActorName, HeaderActorRole},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(ActorMiddleware)

	r.Get("/health", h.Health)

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/collaborators", func(r chi.Router) {
			r.Get("/", h.ListCollaborators)
			r.Post("/", h.CreateCollaborator)
			r.Get("/{id}", h.GetCollaborator)
			r.Put("/{id}", h.UpdateCollaborator)
			r.Delete("/{id}", h.DeleteCollaborator)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/report", h.GetIndividualReport)
		})

		r.Route("/entries", func(r chi.Router) {
			r.Get("/", h.ListEntries)
			r.Post("/", h.CreateEntry)
			r.Get("/{id}", h.GetEntry)
			r.Put("/{id}", h.UpdateEntry)
			r.Delete("/{id}", h.DeleteEntry)
		})

		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Post("/defaults", h.SeedHolidays)
			r.Put("/{id}", h.UpdateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})

		r.Route("/import", func(r chi.Router) {
			r.Post("/", h.Import)
			r.Get("/history", h.ImportHistory)
			r.Get("/template", h.ImportTemplate)
		})

		r.Get("/kinds", h.ListKinds)
		r.Post("/calculator", h.Calculate)
		r.Get("/balances", h.ListBalances)
		r.Get("/analytics", h.Analytics)
		r.Get("/dashboard", h.Dashboard)
		r.Get("/audit", h.AuditTrail)
	})

	if opts.StaticDir != "" {
		if _, err := os.Stat(opts.StaticDir); err == nil {
			r.Get("/*", spaHandler(opts.StaticDir))
		}
	}

	return r
}

// spaHandler serves files from dir, falling back to index.html for
// client-side routes.
func spaHandler(dir string) http.HandlerFunc {
	fileServer := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		fullPath := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if _, err := os.Stat(fullPath); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fileServer.ServeHTTP(w, r)
	}
}
