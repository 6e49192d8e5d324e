package handler

import (
	"net/http"

	"fintrack/internal/security"
)

// CSRFHandler issues double-submit tokens.
type CSRFHandler struct {
	tokens *security.TokenManager
}

func NewCSRFHandler(tokens *security.TokenManager) *CSRFHandler {
	return &CSRFHandler{tokens: tokens}
}

// Token returns the session's CSRF token, minting one when the cookie holds
// none. The endpoint is idempotent: repeated calls return the same token
// until the cookie expires, so multiple tabs share one token.
func (h *CSRFHandler) Token(w http.ResponseWriter, r *http.Request) {
	token, err := h.tokens.Issue(security.NewCookieWriter(w, r))
	if err != nil {
		http.Error(w, `{"error":"Failed to issue CSRF token"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}
