package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router mounts every endpoint under /api/v1. metrics may be nil.
func Router(h *Handler, metrics http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.Session.touch)
		h.Terminal.RegisterRoutes(r)
		h.Session.RegisterRoutes(r)
		h.Catalog.RegisterRoutes(r)
	})
	return r
}

// touch counts every state-changing request as user activity.
func (h *SessionHandler) touch(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.sess != nil && r.Method != http.MethodGet && r.Method != http.MethodHead {
			h.sess.Activity()
		}
		next.ServeHTTP(w, r)
	})
}
