package handler

import (
	"encoding/json"
	"net/http"

	"fintrack/internal/domain"
	"fintrack/internal/middleware"
	"fintrack/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// BudgetHandler handles budget endpoints
type BudgetHandler struct {
	ledger *service.LedgerService
}

func NewBudgetHandler(ledger *service.LedgerService) *BudgetHandler {
	return &BudgetHandler{ledger: ledger}
}

// BudgetRequest is the create payload
type BudgetRequest struct {
	CategoryID string `json:"category_id"`
	Month      string `json:"month"`
	Amount     string `json:"amount"`
}

// UpdateBudgetRequest only carries the new cap
type UpdateBudgetRequest struct {
	Amount string `json:"amount"`
}

func (h *BudgetHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}

	var req BudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, domain.ErrInvalidAmount)
		return
	}

	budget, err := h.ledger.CreateBudget(r.Context(), &domain.Budget{
		UserID:     userID,
		CategoryID: req.CategoryID,
		Month:      req.Month,
		Amount:     amount,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, budget)
}

func (h *BudgetHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}

	budgets, err := h.ledger.ListBudgets(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"budgets": budgets,
	})
}

func (h *BudgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}

	budget, err := h.ledger.GetBudget(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, budget)
}

// Status returns the spend position for one budget.
func (h *BudgetHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}

	status, err := h.ledger.BudgetStatus(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *BudgetHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}

	var req UpdateBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, domain.ErrInvalidAmount)
		return
	}

	budget, err := h.ledger.UpdateBudget(r.Context(), userID, chi.URLParam(r, "id"), amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, budget)
}

func (h *BudgetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}

	if err := h.ledger.DeleteBudget(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
