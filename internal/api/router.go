package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dispatch-engine/internal/api/handlers"
	"dispatch-engine/internal/services"
)

// NewRouter wires HTTP handlers with their dependencies and returns an
// http.Handler. This is the API composition root (handlers stay unaware of
// concrete adapters).
func NewRouter(svc *services.DispatchService) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)

	h := &handlers.DispatchEventHandler{Svc: svc}

	r.Get("/health", handlers.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.Health)

		r.Route("/dispatch-events", func(r chi.Router) {
			r.Post("/", h.Create)
			r.Route("/{eventID}", func(r chi.Router) {
				r.Get("/", h.Get)
				r.Delete("/", h.Delete)
				r.Patch("/status", h.TransitionStatus)
				r.Post("/assign-driver", h.AssignDriver)
				r.Post("/assign-truck", h.AssignTruck)
				r.Patch("/stops/{stopID}", h.UpdateStop)
			})
		})

		r.Get("/terminals/{terminalID}/dispatch-events", h.ListForTerminal)
	})

	return r
}
