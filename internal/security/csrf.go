package security

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"
)

const (
	// TokenCookieName is the cookie carrying the per-session CSRF secret.
	TokenCookieName = "csrf-token"
	// TokenHeaderName is the request header state-changing calls must echo.
	TokenHeaderName = "X-CSRF-Token"

	// tokenByteLength random bytes, hex-encoded to TokenHexLength characters.
	tokenByteLength = 32
	// TokenHexLength is the wire length of a well-formed token.
	TokenHexLength = 64

	// TokenTTL bounds how long one token stays valid client-side.
	TokenTTL = 24 * time.Hour
)

// Verification failures. The messages are the response bodies: clients use
// them to tell "needs re-issuance" apart from "forgery or stale token".
var (
	ErrTokenMissing  = errors.New("CSRF token missing")
	ErrTokenNotFound = errors.New("CSRF token not found in session")
	ErrTokenMismatch = errors.New("Invalid CSRF token")
	ErrReadOnly      = errors.New("cookie access is read-only")
)

// TokenManager mints and verifies CSRF tokens. Tokens are cryptographically
// random and live only in the session cookie; verification is the
// double-submit check against the request header.
type TokenManager struct {
	secure bool
}

// NewTokenManager creates a CSRF token manager. secure marks issued cookies
// Secure, which production configurations must enable.
func NewTokenManager(secure bool) *TokenManager {
	return &TokenManager{secure: secure}
}

// Generate creates a cryptographically secure random CSRF token (256 bits),
// returned as a 64-character hex string.
func (tm *TokenManager) Generate() (string, error) {
	randomBytes := make([]byte, tokenByteLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(randomBytes), nil
}

// IsWellFormed reports whether token is a 64-character hex string. Malformed
// values are never accepted on reuse; they simply fail the check and a fresh
// token is minted.
func (tm *TokenManager) IsWellFormed(token string) bool {
	if len(token) != TokenHexLength {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}

// Issue returns the session's CSRF token, minting one only when the cookie
// holds no well-formed value. Reusing the existing token keeps in-flight
// requests from other tabs valid.
func (tm *TokenManager) Issue(cookies *CookieAccess) (string, error) {
	if existing, ok := cookies.Token(); ok && tm.IsWellFormed(existing) {
		return existing, nil
	}

	token, err := tm.Generate()
	if err != nil {
		return "", err
	}
	if err := cookies.SetToken(token, tm.secure); err != nil {
		return "", err
	}
	return token, nil
}

// Verify checks the header-supplied token against the cookie-resident one.
// The comparison is constant-time so a mismatch cannot leak the correct
// token one byte at a time.
func (tm *TokenManager) Verify(cookieToken, headerToken string) error {
	if headerToken == "" {
		return ErrTokenMissing
	}
	if cookieToken == "" {
		return ErrTokenNotFound
	}
	if len(cookieToken) != len(headerToken) {
		return ErrTokenMismatch
	}
	if !hmac.Equal([]byte(cookieToken), []byte(headerToken)) {
		return ErrTokenMismatch
	}
	return nil
}

// CookieAccess is the single cookie-handling abstraction for the CSRF layer.
// Validation paths construct it read-only; the issuance path constructs it
// read-write. Writes through a read-only access fail with ErrReadOnly rather
// than silently dropping the Set-Cookie.
type CookieAccess struct {
	r *http.Request
	w http.ResponseWriter
}

// NewCookieReader returns a read-only view of the request's CSRF cookie.
func NewCookieReader(r *http.Request) *CookieAccess {
	return &CookieAccess{r: r}
}

// NewCookieWriter returns a read-write view able to issue and clear tokens.
func NewCookieWriter(w http.ResponseWriter, r *http.Request) *CookieAccess {
	return &CookieAccess{r: r, w: w}
}

// Token returns the cookie-resident token, if any.
func (c *CookieAccess) Token() (string, bool) {
	cookie, err := c.r.Cookie(TokenCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// SetToken writes the token cookie: HTTP-only, SameSite=Strict, site-wide,
// expiring after TokenTTL.
func (c *CookieAccess) SetToken(token string, secure bool) error {
	if c.w == nil {
		return ErrReadOnly
	}
	http.SetCookie(c.w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// ClearToken expires the token cookie client-side.
func (c *CookieAccess) ClearToken() error {
	if c.w == nil {
		return ErrReadOnly
	}
	http.SetCookie(c.w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}
