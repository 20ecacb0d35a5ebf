package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/pos/auth"
	"restaurant-pos/internal/pos/navguard"
	"restaurant-pos/internal/pos/tables"
	"restaurant-pos/internal/pos/terminal"
	"restaurant-pos/internal/repository"
)

type Handler struct {
	Terminal *TerminalHandler
	Session  *SessionHandler
	Catalog  *CatalogHandler
}

func New(term *terminal.Terminal, sess *auth.Session, loc *navguard.Location, store *repository.Store, lg *logger.Logger) *Handler {
	if lg == nil {
		lg = logger.New("terminal-api")
	}
	return &Handler{
		Terminal: NewTerminalHandler(term, sess, loc, lg),
		Session:  NewSessionHandler(sess, lg),
		Catalog:  NewCatalogHandler(store, lg),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) { httpx.WriteJSON(w, code, v) }

func writeProblem(w http.ResponseWriter, code int, typ, detail string) {
	httpx.WriteProblem(w, code, typ, detail)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return false
	}
	return true
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, lg *logger.Logger, action string, err error) {
	var (
		rwe *domain.RemoteWriteError
		te  *tables.TransitionError
	)
	switch {
	case errors.As(err, &rwe):
		lg.Error(action, err, nil)
		writeProblem(w, http.StatusBadGateway, "remote_write_failed", err.Error())
	case errors.As(err, &te),
		errors.Is(err, tables.ErrTableNotAvailable),
		errors.Is(err, terminal.ErrOrderInProgress):
		writeProblem(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, auth.ErrNavigationBlocked):
		writeProblem(w, http.StatusConflict, "navigation_blocked", err.Error())
	case errors.Is(err, navguard.ErrNoPendingIntent):
		writeProblem(w, http.StatusConflict, "no_pending_intent", err.Error())
	case errors.Is(err, auth.ErrNotSignedIn):
		writeProblem(w, http.StatusUnauthorized, "not_signed_in", err.Error())
	case errors.Is(err, tables.ErrTableNotFound), errors.Is(err, repository.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeProblem(w, http.StatusUnprocessableEntity, "validation", err.Error())
	default:
		lg.Error(action, err, nil)
		writeProblem(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

// remoteWarnings lists each unconfirmed remote write carried by err.
func remoteWarnings(err error) []string {
	var out []string
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, remoteWarnings(e)...)
		}
		return out
	}
	return []string{err.Error()}
}
