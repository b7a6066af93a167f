package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/reelgen/internal/api/response"
	"github.com/kiranshivaraju/reelgen/internal/history"
	"github.com/kiranshivaraju/reelgen/pkg/models"
)

// HistoryStore is the subset of history.Store the handlers use.
type HistoryStore interface {
	List(ctx context.Context) ([]models.HistoryItem, error)
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// NewListHistoryHandler returns an http.HandlerFunc for GET /api/v1/history.
func NewListHistoryHandler(h HistoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.List(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read history", nil)
			return
		}
		if items == nil {
			items = []models.HistoryItem{}
		}
		response.Collection(w, items, response.CollectionMeta{Total: len(items), Limit: history.MaxItems})
	}
}

// NewRemoveHistoryHandler returns an http.HandlerFunc for
// DELETE /api/v1/history/{id}. Unknown ids succeed.
func NewRemoveHistoryHandler(h HistoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update history", nil)
			return
		}
		response.NoContent(w)
	}
}

// NewClearHistoryHandler returns an http.HandlerFunc for DELETE /api/v1/history.
func NewClearHistoryHandler(h HistoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.Clear(r.Context()); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to clear history", nil)
			return
		}
		response.NoContent(w)
	}
}
