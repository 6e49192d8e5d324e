package handler

import (
	"context"
	"net/http"

	"fintrack/internal/middleware"
	"fintrack/internal/service"

	"github.com/go-chi/chi/v5"
)

// TrashHandler handles the soft-delete bin.
type TrashHandler struct {
	ledger *service.LedgerService
}

func NewTrashHandler(ledger *service.LedgerService) *TrashHandler {
	return &TrashHandler{ledger: ledger}
}

func (h *TrashHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}

	trash, err := h.ledger.ListTrash(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, trash)
}

func (h *TrashHandler) RestoreTransaction(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.ledger.RestoreTransaction)
}

func (h *TrashHandler) PurgeTransaction(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.ledger.PurgeTransaction)
}

func (h *TrashHandler) RestoreCategory(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.ledger.RestoreCategory)
}

func (h *TrashHandler) PurgeCategory(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.ledger.PurgeCategory)
}

func (h *TrashHandler) act(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, id string) error) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}

	if err := fn(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
