package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/domain"
	"fintrack/internal/middleware"
	"fintrack/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// TransactionHandler handles transaction endpoints
type TransactionHandler struct {
	ledger *service.LedgerService
}

func NewTransactionHandler(ledger *service.LedgerService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger}
}

// TransactionRequest is the create/update payload. Amount is a decimal
// string so values like 19.99 survive the round trip exactly.
type TransactionRequest struct {
	CategoryID string      `json:"category_id"`
	Kind       domain.Kind `json:"kind"`
	Amount     string      `json:"amount"`
	Note       string      `json:"note"`
	OccurredAt *time.Time  `json:"occurred_at"`
}

func (h *TransactionHandler) decode(r *http.Request, userID string) (*domain.Transaction, error) {
	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, domain.ErrInvalidInput
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, domain.ErrInvalidAmount
	}

	tx := &domain.Transaction{
		UserID:     userID,
		CategoryID: req.CategoryID,
		Kind:       req.Kind,
		Amount:     amount,
		Note:       req.Note,
	}
	if req.OccurredAt != nil {
		tx.OccurredAt = *req.OccurredAt
	}
	return tx, nil
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}

	tx, err := h.decode(r, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	created, err := h.ledger.CreateTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// List supports category, kind, month (YYYY-MM), limit and offset query
// parameters.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}

	query := r.URL.Query()
	filter := domain.TransactionFilter{
		CategoryID: query.Get("category_id"),
		Kind:       domain.Kind(query.Get("kind")),
		Month:      query.Get("month"),
		Limit:      50,
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 500 {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	transactions, err := h.ledger.ListTransactions(r.Context(), userID, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
	})
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}

	tx, err := h.ledger.GetTransaction(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}

	tx, err := h.decode(r, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	tx.ID = chi.URLParam(r, "id")

	updated, err := h.ledger.UpdateTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Delete moves a transaction to the trash.
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}

	if err := h.ledger.DeleteTransaction(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
