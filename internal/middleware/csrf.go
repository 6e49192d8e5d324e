package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"fintrack/internal/observability"
	"fintrack/internal/security"
)

// CSRF validates the double-submit token on every state-changing request.
//
// Flow:
//  1. Skip safe methods (GET, HEAD, OPTIONS)
//  2. Skip exempt endpoints (health, metrics, websocket, the token issuer)
//  3. Read the token cookie (read-only access) and the X-CSRF-Token header
//  4. Verify with a constant-time comparison
//  5. Reject with 403 and a distinguishable reason on failure
//
// The three rejection bodies let the client tell "no session token" (fetch a
// fresh one and retry once) apart from a mismatch (stale token or forgery).
func CSRF(tokens *security.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			if isExemptPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			cookieToken, _ := security.NewCookieReader(r).Token()
			headerToken := r.Header.Get(security.TokenHeaderName)

			if err := tokens.Verify(cookieToken, headerToken); err != nil {
				logCSRFFailure(r, err)
				observability.CSRFRejections.WithLabelValues(rejectionReason(err)).Inc()
				http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isSafeMethod returns true for methods that must not change state and are
// therefore exempt from CSRF validation.
func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}

// isExemptPath returns true if the request path should skip CSRF validation.
// The issuance endpoint must be exempt: a token cannot be validated on the
// endpoint that mints it.
func isExemptPath(path string) bool {
	exemptPaths := []string{
		"/health",
		"/metrics",
		"/ws/",
		"/api/v1/csrf-token",
	}

	for _, exemptPath := range exemptPaths {
		if strings.HasPrefix(path, exemptPath) {
			return true
		}
	}
	return false
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, security.ErrTokenMissing):
		return "missing_token"
	case errors.Is(err, security.ErrTokenNotFound):
		return "missing_cookie"
	default:
		return "mismatch"
	}
}

// logCSRFFailure records a security event when CSRF validation fails.
// Useful for monitoring and detecting potential CSRF attacks.
func logCSRFFailure(r *http.Request, err error) {
	userID, _ := GetUserID(r.Context())
	slog.Warn("CSRF validation failed",
		slog.String("user_id", userID),
		slog.String("reason", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	)
}
