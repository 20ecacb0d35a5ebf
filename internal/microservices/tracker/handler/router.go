package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func Router(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/api/v1/tracking/tables/{table_id}/status", h.TrackerHandler.GetStatus)
	r.Get("/api/v1/tracking/tables/{table_id}/timeline", h.TrackerHandler.GetTimeline)
	return r
}
