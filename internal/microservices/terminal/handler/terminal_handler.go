package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/pos/auth"
	"restaurant-pos/internal/pos/navguard"
	"restaurant-pos/internal/pos/terminal"
)

// TerminalHandler exposes the sale, table and navigation operations.
type TerminalHandler struct {
	term *terminal.Terminal
	sess *auth.Session
	loc  *navguard.Location
	log  *logger.Logger
}

func NewTerminalHandler(term *terminal.Terminal, sess *auth.Session, loc *navguard.Location, lg *logger.Logger) *TerminalHandler {
	return &TerminalHandler{term: term, sess: sess, loc: loc, log: lg}
}

func (h *TerminalHandler) RegisterRoutes(r chi.Router) {
	r.Route("/order", func(r chi.Router) {
		r.Get("/", h.GetOrder)
		r.Delete("/", h.ClearOrder)
		r.Post("/lines", h.AddLine)
		r.Patch("/lines/{item_id}", h.UpdateLine)
		r.Delete("/lines/{item_id}", h.RemoveLine)
		r.Put("/customer", h.SetCustomer)
		r.Post("/direct", h.StartDirectSale)
		r.Post("/payment", h.EnterPayment)
		r.Delete("/payment", h.CancelPayment)
		r.Post("/finalize", h.Finalize)
	})
	r.Route("/tables", func(r chi.Router) {
		r.Get("/", h.ListTables)
		r.Post("/", h.UpsertTable)
		r.Post("/refresh", h.RefreshTables)
		r.Put("/{table_id}", h.UpsertTable)
		r.Delete("/{table_id}", h.DeleteTable)
		r.Post("/{table_id}/select", h.SelectTable)
		r.Post("/{table_id}/free", h.ForceFree)
	})
	r.Route("/navigation", func(r chi.Router) {
		r.Post("/check", h.CheckNavigation)
		r.Post("/back", h.Back)
		r.Get("/unload", h.BeforeUnload)
		r.Get("/history", h.DrainHistory)
		r.Get("/intent", h.GetIntent)
		r.Post("/intent", h.ShowConfirm)
		r.Delete("/intent", h.CloseConfirm)
		r.Post("/confirm", h.Confirm)
	})
	r.Put("/forced-mode", h.SetForcedMode)
}

func (h *TerminalHandler) orderResponse() domain.OrderResponse {
	return domain.OrderResponse{
		Order:      h.term.Order(),
		Totals:     h.term.Totals(),
		Dirty:      h.term.IsDirty(),
		ForcedMode: h.term.IsForcedMode(),
	}
}

// reply answers a mutation with the resulting order, or the error.
func (h *TerminalHandler) reply(w http.ResponseWriter, action string, err error) {
	if err != nil {
		writeError(w, h.log, action, err)
		return
	}
	writeJSON(w, http.StatusOK, h.orderResponse())
}

func (h *TerminalHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orderResponse())
}

func (h *TerminalHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req domain.AddLineRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ItemID == "" {
		writeProblem(w, http.StatusBadRequest, "validation", "item_id is required")
		return
	}
	h.reply(w, "add_to_order", h.term.AddToOrder(r.Context(), req.ItemID))
}

func (h *TerminalHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateLineRequest
	if !decode(w, r, &req) {
		return
	}
	h.reply(w, "update_order_line", h.term.UpdateOrderLine(r.Context(), chi.URLParam(r, "item_id"), req.Quantity))
}

func (h *TerminalHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	h.reply(w, "remove_from_order", h.term.RemoveFromOrder(r.Context(), chi.URLParam(r, "item_id")))
}

func (h *TerminalHandler) ClearOrder(w http.ResponseWriter, r *http.Request) {
	h.reply(w, "clear_order", h.term.ClearOrder(r.Context()))
}

func (h *TerminalHandler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.SetCustomerRequest
	if !decode(w, r, &req) {
		return
	}
	h.reply(w, "set_customer", h.term.SetCustomer(r.Context(), req.CustomerID))
}

func (h *TerminalHandler) StartDirectSale(w http.ResponseWriter, r *http.Request) {
	h.term.StartDirectSale()
	writeJSON(w, http.StatusOK, h.orderResponse())
}

func (h *TerminalHandler) EnterPayment(w http.ResponseWriter, r *http.Request) {
	h.reply(w, "enter_payment", h.term.EnterPayment(r.Context()))
}

func (h *TerminalHandler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	h.reply(w, "cancel_payment", h.term.CancelPayment(r.Context()))
}

func (h *TerminalHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req domain.FinalizeRequest
	if !decode(w, r, &req) {
		return
	}
	pay := domain.PaymentInfo{Method: req.Method}
	switch pay.Method {
	case "", domain.PaymentCash, domain.PaymentCard, domain.PaymentTransfer:
	default:
		writeProblem(w, http.StatusBadRequest, "validation", "unknown payment method "+string(req.Method))
		return
	}
	if req.Tendered != "" {
		amt, err := decimal.NewFromString(req.Tendered)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "validation", "tendered must be a decimal amount")
			return
		}
		pay.Tendered = amt
	}

	rec, err := h.term.FinalizeSale(r.Context(), pay)
	if err != nil && rec.ID == "" {
		writeError(w, h.log, "finalize_sale", err)
		return
	}
	resp := domain.FinalizeResponse{
		SaleID:     rec.ID,
		GrandTotal: rec.Totals.GrandTotal,
		Change:     rec.Change,
	}
	if err != nil {
		// The sale is closed locally; only the remote write is missing.
		h.log.Error("finalize_sale_not_persisted", err, map[string]any{"sale_id": rec.ID})
		resp.RemoteWriteFailed = true
		resp.Warnings = remoteWarnings(err)
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *TerminalHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.term.Tables())
}

func (h *TerminalHandler) RefreshTables(w http.ResponseWriter, r *http.Request) {
	if err := h.term.RefreshTables(r.Context()); err != nil {
		writeError(w, h.log, "refresh_tables", err)
		return
	}
	writeJSON(w, http.StatusOK, h.term.Tables())
}

func (h *TerminalHandler) UpsertTable(w http.ResponseWriter, r *http.Request) {
	var tb domain.Table
	if !decode(w, r, &tb) {
		return
	}
	if id := chi.URLParam(r, "table_id"); id != "" {
		tb.ID = id
	}
	if tb.ID == "" || tb.Name == "" {
		writeProblem(w, http.StatusBadRequest, "validation", "id and name are required")
		return
	}
	got, err := h.term.UpsertTable(r.Context(), tb)
	if err != nil {
		writeError(w, h.log, "upsert_table", err)
		return
	}
	writeJSON(w, http.StatusOK, got)
}

func (h *TerminalHandler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	if err := h.term.DeleteTable(r.Context(), chi.URLParam(r, "table_id")); err != nil {
		writeError(w, h.log, "delete_table", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TerminalHandler) SelectTable(w http.ResponseWriter, r *http.Request) {
	if _, err := h.term.SelectTable(chi.URLParam(r, "table_id")); err != nil {
		writeError(w, h.log, "select_table", err)
		return
	}
	writeJSON(w, http.StatusOK, h.orderResponse())
}

func (h *TerminalHandler) ForceFree(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "table_id")
	if err := h.term.ForceFreeTable(r.Context(), id); err != nil {
		writeError(w, h.log, "force_free_table", err)
		return
	}
	tb, err := h.term.Table(id)
	if err != nil {
		writeError(w, h.log, "force_free_table", err)
		return
	}
	writeJSON(w, http.StatusOK, tb)
}

func (h *TerminalHandler) syncLocation(current string) {
	h.term.ReportLocation(current)
}

func (h *TerminalHandler) CheckNavigation(w http.ResponseWriter, r *http.Request) {
	var req domain.NavigateRequest
	if !decode(w, r, &req) {
		return
	}
	h.syncLocation(req.Current)
	allowed := h.term.CheckNavigation(req.Target)
	writeJSON(w, http.StatusOK, domain.NavigateResponse{Allowed: allowed, Target: req.Target})
}

func (h *TerminalHandler) Back(w http.ResponseWriter, r *http.Request) {
	var req domain.NavigateRequest
	if !decode(w, r, &req) {
		return
	}
	h.syncLocation(req.Current)
	res := h.term.OnBack(req.Target)
	writeJSON(w, http.StatusOK, map[string]any{
		"result":  res.String(),
		"allowed": res != navguard.PopAbsorbed,
		"intent":  h.term.NavigationIntent(),
	})
}

func (h *TerminalHandler) BeforeUnload(w http.ResponseWriter, r *http.Request) {
	h.syncLocation(r.URL.Query().Get("current"))
	msg, prompt := h.term.BeforeUnload()
	writeJSON(w, http.StatusOK, domain.UnloadResponse{Prompt: prompt, Message: msg})
}

// DrainHistory hands the client the history entries it must push.
func (h *TerminalHandler) DrainHistory(w http.ResponseWriter, r *http.Request) {
	var pushes []string
	if h.loc != nil {
		pushes = h.loc.DrainPushes()
	}
	if pushes == nil {
		pushes = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"push": pushes})
}

func (h *TerminalHandler) GetIntent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.term.NavigationIntent())
}

func (h *TerminalHandler) ShowConfirm(w http.ResponseWriter, r *http.Request) {
	var req domain.NavigateRequest
	if !decode(w, r, &req) {
		return
	}
	h.term.ShowNavConfirm(req.Target)
	writeJSON(w, http.StatusOK, h.term.NavigationIntent())
}

func (h *TerminalHandler) CloseConfirm(w http.ResponseWriter, r *http.Request) {
	h.term.CloseNavConfirm()
	writeJSON(w, http.StatusOK, h.term.NavigationIntent())
}

func (h *TerminalHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var (
		target string
		err    error
	)
	if h.sess != nil {
		target, err = h.sess.ConfirmNavigation(r.Context())
	} else {
		target, err = h.term.ConfirmNavigation(r.Context())
	}
	if err != nil {
		writeError(w, h.log, "confirm_navigation", err)
		return
	}
	writeJSON(w, http.StatusOK, domain.NavigateResponse{Allowed: true, Target: target})
}

func (h *TerminalHandler) SetForcedMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.term.SetForcedMode(req.Enabled)
	writeJSON(w, http.StatusOK, h.orderResponse())
}
