package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"fintrack/internal/security"
	"fintrack/internal/testutil"
)

func csrfHandler(t *testing.T, called *bool) http.Handler {
	t.Helper()
	tokens := security.NewTokenManager(false)
	return CSRF(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}))
}

func newToken(t *testing.T) string {
	t.Helper()
	token, err := security.NewTokenManager(false).Generate()
	testutil.AssertNoError(t, err)
	return token
}

func TestCSRF_ValidToken(t *testing.T) {
	token := newToken(t)

	called := false
	handler := csrfHandler(t, &called)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil)
	req.AddCookie(&http.Cookie{Name: security.TokenCookieName, Value: token})
	req.Header.Set(security.TokenHeaderName, token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w, http.StatusOK)
	testutil.AssertTrue(t, called, "next handler should be called")
}

func TestCSRF_MissingHeader(t *testing.T) {
	called := false
	handler := csrfHandler(t, &called)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil)
	req.AddCookie(&http.Cookie{Name: security.TokenCookieName, Value: newToken(t)})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w, http.StatusForbidden)
	testutil.AssertFalse(t, called, "next handler should not be called")
	testutil.AssertContains(t, w.Body.String(), "CSRF token missing")
}

func TestCSRF_MissingCookie(t *testing.T) {
	called := false
	handler := csrfHandler(t, &called)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil)
	req.Header.Set(security.TokenHeaderName, newToken(t))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w, http.StatusForbidden)
	testutil.AssertFalse(t, called, "next handler should not be called")
	testutil.AssertContains(t, w.Body.String(), "CSRF token not found in session")
}

func TestCSRF_TokenMismatch(t *testing.T) {
	called := false
	handler := csrfHandler(t, &called)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil)
	req.AddCookie(&http.Cookie{Name: security.TokenCookieName, Value: newToken(t)})
	req.Header.Set(security.TokenHeaderName, newToken(t))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w, http.StatusForbidden)
	testutil.AssertFalse(t, called, "next handler should not be called")
	testutil.AssertContains(t, w.Body.String(), "Invalid CSRF token")
}

func TestCSRF_SafeMethodsSkipValidation(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			called := false
			handler := csrfHandler(t, &called)

			req := httptest.NewRequest(method, "/api/v1/transactions", nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			testutil.AssertStatusCode(t, w, http.StatusOK)
			testutil.AssertTrue(t, called, "safe method should pass without a token")
		})
	}
}

func TestCSRF_ExemptPathsSkipValidation(t *testing.T) {
	paths := []string{
		"/health",
		"/health/ready",
		"/metrics",
		"/ws/notifications",
		"/api/v1/csrf-token",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			called := false
			handler := csrfHandler(t, &called)

			req := httptest.NewRequest(http.MethodPost, path, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			testutil.AssertStatusCode(t, w, http.StatusOK)
			testutil.AssertTrue(t, called, "exempt path should pass without a token")
		})
	}
}

func TestCSRF_IssueThenValidateRoundTrip(t *testing.T) {
	tokens := security.NewTokenManager(false)

	// Issue a token the way the token endpoint does.
	issueReq := httptest.NewRequest(http.MethodGet, "/api/v1/csrf-token", nil)
	issueRec := httptest.NewRecorder()
	token, err := tokens.Issue(security.NewCookieWriter(issueRec, issueReq))
	testutil.AssertNoError(t, err)

	cookie := testutil.AssertCookie(t, issueRec, security.TokenCookieName)
	testutil.AssertEqual(t, cookie.Value, token)

	// Replay it on a state-changing request.
	called := false
	handler := CSRF(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/categories", nil)
	req.AddCookie(&http.Cookie{Name: security.TokenCookieName, Value: cookie.Value})
	req.Header.Set(security.TokenHeaderName, token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w, http.StatusOK)
	testutil.AssertTrue(t, called, "issued token should validate")
}
