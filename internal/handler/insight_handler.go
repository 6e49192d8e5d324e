package handler

import (
	"encoding/json"
	"net/http"

	"fintrack/internal/middleware"
	"fintrack/internal/service"

	"github.com/go-chi/chi/v5"
)

// InsightHandler handles monthly insight endpoints
type InsightHandler struct {
	insights *service.InsightService
}

func NewInsightHandler(insights *service.InsightService) *InsightHandler {
	return &InsightHandler{insights: insights}
}

// InsightRequest names the month to summarize
type InsightRequest struct {
	Month string `json:"month"`
}

// Request enqueues generation and returns the pending insight. Clients poll
// Get or wait for the insight_ready push.
func (h *InsightHandler) Request(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}

	var req InsightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	insight, err := h.insights.Request(r.Context(), userID, req.Month)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, insight)
}

func (h *InsightHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}

	insights, err := h.insights.ListInsights(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"insights": insights,
	})
}

func (h *InsightHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}

	insight, err := h.insights.GetInsight(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, insight)
}
