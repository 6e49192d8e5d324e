package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError renders a domain error. Unmapped errors carry driver and query
// detail, so the 500 branch logs them and sends a fixed body instead.
func writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", slog.String("error", err.Error()))
		msg = "Internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorStatus maps domain errors onto HTTP statuses. Anything unmapped is a
// 500 so repository failures never leak as client errors.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrNotDeleted):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrCategoryNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrBudgetNotFound),
		errors.Is(err, domain.ErrInsightNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUsernameExists),
		errors.Is(err, domain.ErrEmailExists),
		errors.Is(err, domain.ErrCategoryExists),
		errors.Is(err, domain.ErrBudgetExists),
		errors.Is(err, domain.ErrCategoryInUse):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
