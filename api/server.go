/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/items/*      Item definitions and per-type listings
  /api/locations/*  Stock per location
  /api/sources/*    Open orders per source
  /api/projects/*   Consumption per project
  /api/count        Single entry lookup
  /api/events       Record ledger entries
  /api/replay       Rebuild counts from the ledger
  /api/show-empty   Pin empty entries into listings
  /api/objects/*    Evict an item or dimension from the caches

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
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
		r.Get("/health", h.Health)

		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.ListItems)
			r.Post("/", h.CreateItem)
			r.Get("/{type}/stock", h.StockByItemType)
			r.Get("/{type}/orders", h.OrdersByItemType)
			r.Get("/{type}/projects", h.ProjectsByItemType)
		})

		r.Get("/locations/{id}/stock", h.LocationStock)
		r.Get("/sources/{id}/orders", h.SourceOrders)
		r.Get("/projects/{id}/usage", h.ProjectUsage)

		r.Get("/count", h.GetCount)
		r.Post("/events", h.RecordEvents)
		r.Post("/replay", h.Replay)
		r.Put("/show-empty", h.ShowEmpty)
		r.Delete("/objects/{id}", h.RemoveObject)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", nil)
	})

	return r
}
