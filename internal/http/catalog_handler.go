package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/food-orders/internal/catalog"
)

type Catalog interface {
	ListCategories(ctx context.Context) ([]*catalog.Category, error)
	ListItemsByCategory(ctx context.Context, categoryName string) ([]*catalog.FoodItem, error)
	GetItem(ctx context.Context, id int64) (*catalog.FoodItem, error)
}

type CatalogHandler struct {
	catalog Catalog
	timeout time.Duration
}

func NewCatalogHandler(c Catalog, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{catalog: c, timeout: timeout}
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"categories": categories})
}

func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	items, err := h.catalog.ListItemsByCategory(ctx, chi.URLParam(r, "name"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	out := make([]FoodItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, toFoodItemDTO(item))
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"items": out})
}

func (h *CatalogHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := strconv.ParseInt(chi.URLParam(r, "item_id"), 10, 64)
	if err != nil || id <= 0 {
		handleServiceError(w, r, catalog.ErrItemNotFound)
		return
	}

	item, err := h.catalog.GetItem(ctx, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toFoodItemDTO(item))
}
