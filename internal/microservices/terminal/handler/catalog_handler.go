package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/repository"
)

// CatalogHandler serves the read-only lookups the sale screens need.
type CatalogHandler struct {
	store *repository.Store
	log   *logger.Logger
}

func NewCatalogHandler(store *repository.Store, lg *logger.Logger) *CatalogHandler {
	return &CatalogHandler{store: store, log: lg}
}

func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/items", h.ListItems)
	r.Get("/items/{item_id}", h.GetItem)
	r.Get("/categories", h.ListCategories)
	r.Get("/customers", h.ListCustomers)
}

func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.Items.List(r.Context())
	if err != nil {
		writeError(w, h.log, "list_items", err)
		return
	}
	if cat := r.URL.Query().Get("category_id"); cat != "" {
		filtered := items[:0]
		for _, it := range items {
			if it.CategoryID == cat {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}
	if items == nil {
		items = []domain.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CatalogHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	it, err := h.store.Items.Get(r.Context(), chi.URLParam(r, "item_id"))
	if err != nil {
		writeError(w, h.log, "get_item", err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.Categories.List(r.Context())
	if err != nil {
		writeError(w, h.log, "list_categories", err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *CatalogHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.store.Customers.List(r.Context())
	if err != nil {
		writeError(w, h.log, "list_customers", err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}
