package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/pos/auth"
)

type SessionHandler struct {
	sess *auth.Session
	log  *logger.Logger
}

func NewSessionHandler(sess *auth.Session, lg *logger.Logger) *SessionHandler {
	return &SessionHandler{sess: sess, log: lg}
}

// RegisterRoutes mounts /session. A terminal without sign-in gets none.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	if h.sess == nil {
		return
	}
	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/sign-in", h.SignIn)
		r.Post("/sign-out", h.SignOut)
		r.Post("/extend", h.Extend)
		r.Post("/activity", h.Activity)
	})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sess.Identity()
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "not_signed_in", auth.ErrNotSignedIn.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"identity": id, "session": h.sess.Snapshot()})
}

func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req domain.SignInRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeProblem(w, http.StatusBadRequest, "validation", "user_id is required")
		return
	}
	if req.SessionDurationMinutes < 0 {
		writeProblem(w, http.StatusBadRequest, "validation", "session_duration_minutes must not be negative")
		return
	}
	id := domain.Identity{UserID: req.UserID, Name: req.Name, SessionDurationMinutes: req.SessionDurationMinutes}
	h.sess.SignIn(id)
	writeJSON(w, http.StatusOK, map[string]any{"identity": id, "session": h.sess.Snapshot()})
}

func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	err := h.sess.SignOut(r.Context(), false)
	if errors.Is(err, auth.ErrNavigationBlocked) {
		writeProblem(w, http.StatusConflict, "navigation_blocked", "an order is in progress; confirm to discard it")
		return
	}
	if err != nil {
		writeError(w, h.log, "sign_out", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Extend(w http.ResponseWriter, r *http.Request) {
	if !h.sess.Extend() {
		writeProblem(w, http.StatusConflict, "session_inactive", "no session to extend")
		return
	}
	writeJSON(w, http.StatusOK, h.sess.Snapshot())
}

func (h *SessionHandler) Activity(w http.ResponseWriter, r *http.Request) {
	h.sess.Activity()
	w.WriteHeader(http.StatusNoContent)
}
