package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"fintrack/internal/domain"
	"fintrack/internal/testutil"
)

func TestWriteError_MappedStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid amount", domain.ErrInvalidAmount, http.StatusBadRequest},
		{"not in trash", domain.ErrNotDeleted, http.StatusBadRequest},
		{"bad credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{"category missing", domain.ErrCategoryNotFound, http.StatusNotFound},
		{"insight missing", domain.ErrInsightNotFound, http.StatusNotFound},
		{"duplicate budget", domain.ErrBudgetExists, http.StatusConflict},
		{"category in use", domain.ErrCategoryInUse, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, tt.err)

			testutil.AssertStatusCode(t, w, tt.status)
			body := testutil.AssertJSONResponse(t, w, tt.status)
			testutil.AssertEqual(t, body["error"].(string), tt.err.Error())
		})
	}
}

func TestWriteError_WrappedSentinelKeepsStatus(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, fmt.Errorf("load category: %w", domain.ErrCategoryNotFound))

	testutil.AssertStatusCode(t, w, http.StatusNotFound)
}

func TestWriteError_UnmappedErrorIsOpaque(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, fmt.Errorf(`create user: pq: duplicate key value violates unique constraint "users_pkey"`))

	testutil.AssertStatusCode(t, w, http.StatusInternalServerError)

	// Driver text carries quotes and table names; neither may reach a client.
	var body map[string]string
	testutil.AssertNoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	testutil.AssertEqual(t, body["error"], "Internal server error")
	testutil.AssertNotContains(t, w.Body.String(), "pq:")
	testutil.AssertNotContains(t, w.Body.String(), "users_pkey")
}

func TestWriteError_SetsJSONContentType(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, domain.ErrBudgetNotFound)

	testutil.AssertEqual(t, w.Header().Get("Content-Type"), "application/json")
}
