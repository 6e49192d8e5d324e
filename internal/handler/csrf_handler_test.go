package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"fintrack/internal/security"
	"fintrack/internal/testutil"
)

func TestCSRFHandler_Token(t *testing.T) {
	h := NewCSRFHandler(security.NewTokenManager(false))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/csrf-token", nil)
	w := httptest.NewRecorder()

	h.Token(w, req)

	body := testutil.AssertJSONResponse(t, w, http.StatusOK)
	token, _ := body["csrf_token"].(string)
	testutil.AssertEqual(t, len(token), security.TokenHexLength)

	cookie := testutil.AssertCookie(t, w, security.TokenCookieName)
	testutil.AssertEqual(t, cookie.Value, token)
	testutil.AssertTrue(t, cookie.HttpOnly, "token cookie must be HttpOnly")
	testutil.AssertEqual(t, cookie.SameSite, http.SameSiteStrictMode)
	testutil.AssertEqual(t, cookie.Path, "/")
}

func TestCSRFHandler_Token_ReusesExistingToken(t *testing.T) {
	h := NewCSRFHandler(security.NewTokenManager(false))

	first := httptest.NewRequest(http.MethodGet, "/api/v1/csrf-token", nil)
	firstRec := httptest.NewRecorder()
	h.Token(firstRec, first)
	cookie := testutil.AssertCookie(t, firstRec, security.TokenCookieName)

	// A second call with the cookie present returns the same token and does
	// not set a replacement cookie.
	second := httptest.NewRequest(http.MethodGet, "/api/v1/csrf-token", nil)
	second.AddCookie(&http.Cookie{Name: security.TokenCookieName, Value: cookie.Value})
	secondRec := httptest.NewRecorder()
	h.Token(secondRec, second)

	body := testutil.AssertJSONResponse(t, secondRec, http.StatusOK)
	testutil.AssertEqual[any](t, body["csrf_token"], cookie.Value)
	testutil.AssertNoCookie(t, secondRec, security.TokenCookieName)
}

func TestCSRFHandler_Token_ReplacesMalformedToken(t *testing.T) {
	h := NewCSRFHandler(security.NewTokenManager(false))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/csrf-token", nil)
	req.AddCookie(&http.Cookie{Name: security.TokenCookieName, Value: "not-a-token"})
	w := httptest.NewRecorder()

	h.Token(w, req)

	body := testutil.AssertJSONResponse(t, w, http.StatusOK)
	token, _ := body["csrf_token"].(string)
	testutil.AssertNotEqual(t, token, "not-a-token")
	testutil.AssertEqual(t, len(token), security.TokenHexLength)

	cookie := testutil.AssertCookie(t, w, security.TokenCookieName)
	testutil.AssertEqual(t, cookie.Value, token)
}

func TestCSRFHandler_Token_SecureInProduction(t *testing.T) {
	h := NewCSRFHandler(security.NewTokenManager(true))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/csrf-token", nil)
	w := httptest.NewRecorder()

	h.Token(w, req)

	cookie := testutil.AssertCookie(t, w, security.TokenCookieName)
	testutil.AssertTrue(t, cookie.Secure, "token cookie must be Secure in production")
}
