package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/gamification-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware движка начисления баллов.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/api/health", h.Health)

	r.Route("/api/gamification", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Post("/award", h.Award)
		r.Get("/progress", h.GetProgress)
		r.Get("/badges", h.GetBadges)
		r.Get("/transactions", h.GetTransactions)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
