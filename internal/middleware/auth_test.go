package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fintrack/internal/domain"
	"fintrack/internal/testutil"
)

func TestAuth_ValidSession(t *testing.T) {
	sessionRepo := testutil.NewMockSessionRepository()
	session := testutil.NewTestSession("user-123")
	sessionRepo.Sessions[session.Token] = session

	var gotUserID string
	var gotSession *domain.Session
	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		gotUserID, _ = GetUserID(r.Context())
		gotSession, _ = GetSession(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := Auth(sessionRepo)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session.Token})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w, http.StatusOK)
	testutil.AssertTrue(t, nextCalled, "next handler should be called")
	testutil.AssertEqual(t, gotUserID, "user-123")
	testutil.AssertNotNil(t, gotSession)
	testutil.AssertEqual(t, gotSession.Token, session.Token)
}

func TestAuth_NoCookie(t *testing.T) {
	sessionRepo := testutil.NewMockSessionRepository()

	nextCalled := false
	handler := Auth(sessionRepo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w, http.StatusUnauthorized)
	testutil.AssertFalse(t, nextCalled, "next handler should not be called")
	testutil.AssertContains(t, w.Body.String(), "Not authenticated")
}

func TestAuth_UnknownToken(t *testing.T) {
	sessionRepo := testutil.NewMockSessionRepository()

	nextCalled := false
	handler := Auth(sessionRepo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "no-such-token"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w, http.StatusUnauthorized)
	testutil.AssertFalse(t, nextCalled, "next handler should not be called")
	testutil.AssertContains(t, w.Body.String(), "Invalid or expired session")
}

func TestAuth_ExpiredSession(t *testing.T) {
	sessionRepo := testutil.NewMockSessionRepository()
	session := testutil.NewTestSession("user-123")
	session.ExpiresAt = time.Now().Add(-time.Minute)
	sessionRepo.Sessions[session.Token] = session

	nextCalled := false
	handler := Auth(sessionRepo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session.Token})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w, http.StatusUnauthorized)
	testutil.AssertFalse(t, nextCalled, "next handler should not be called")
}

func TestGetUserID_MissingFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := GetUserID(req.Context())
	testutil.AssertFalse(t, ok, "user id should be absent without auth")
}
