package testutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

// Error assertions.

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("error is nil, want non-nil")
	}
}

// AssertErrorIs checks err against a sentinel with errors.Is, so wrapped
// repository errors still match.
func AssertErrorIs(t *testing.T, err, expected error) {
	t.Helper()
	if !errors.Is(err, expected) {
		t.Errorf("error = %v, want %v", err, expected)
	}
}

// Value assertions.

func AssertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func AssertNotEqual[T comparable](t *testing.T, got, notWant T) {
	t.Helper()
	if got == notWant {
		t.Errorf("got %v, did not want %v", got, notWant)
	}
}

func AssertTrue(t *testing.T, condition bool, msg string) {
	t.Helper()
	if !condition {
		t.Errorf("%s: got false, want true", msg)
	}
}

func AssertFalse(t *testing.T, condition bool, msg string) {
	t.Helper()
	if condition {
		t.Errorf("%s: got true, want false", msg)
	}
}

func AssertContains(t *testing.T, s, substring string) {
	t.Helper()
	if !strings.Contains(s, substring) {
		t.Errorf("%q does not contain %q", s, substring)
	}
}

func AssertNotContains(t *testing.T, s, substring string) {
	t.Helper()
	if strings.Contains(s, substring) {
		t.Errorf("%q contains %q, want it absent", s, substring)
	}
}

// AssertDecimal compares a money amount against its canonical string form.
// Comparing through decimal.Equal sidesteps scale differences like 10 vs
// 10.00.
func AssertDecimal(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	expected, err := decimal.NewFromString(want)
	if err != nil {
		t.Fatalf("bad expected amount %q: %v", want, err)
	}
	if !got.Equal(expected) {
		t.Errorf("amount = %s, want %s", got.String(), want)
	}
}

func AssertNil(t *testing.T, v interface{}) {
	t.Helper()
	if v == nil {
		return
	}
	if rv := reflect.ValueOf(v); isNilable(rv.Kind()) && rv.IsNil() {
		return
	}
	t.Errorf("value = %v, want nil", v)
}

func AssertNotNil(t *testing.T, v interface{}) {
	t.Helper()
	if v == nil {
		t.Fatal("value is nil, want non-nil")
	}
	if rv := reflect.ValueOf(v); isNilable(rv.Kind()) && rv.IsNil() {
		t.Fatal("value is nil, want non-nil")
	}
}

func isNilable(kind reflect.Kind) bool {
	switch kind {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return true
	}
	return false
}

// Slice assertions.

func AssertLen[T any](t *testing.T, slice []T, expected int) {
	t.Helper()
	if len(slice) != expected {
		t.Errorf("len = %d, want %d", len(slice), expected)
	}
}

func AssertEmpty[T any](t *testing.T, slice []T) {
	t.Helper()
	if len(slice) != 0 {
		t.Errorf("len = %d, want 0", len(slice))
	}
}

// HTTP assertions.

func AssertStatusCode(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("status = %d, want %d (body %s)", w.Code, expected, w.Body.String())
	}
}

// AssertJSONResponse checks the status and hands back the decoded body for
// further field checks.
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int) map[string]interface{} {
	t.Helper()
	AssertStatusCode(t, w, expectedStatus)

	var result map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response body: %v (body %s)", err, w.Body.String())
	}
	return result
}

// AssertCookie returns the named response cookie so callers can check its
// flags, failing if it was never set.
func AssertCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Errorf("cookie %q not set", name)
	return nil
}

// AssertNoCookie fails if the response sets a live cookie with the given
// name. An expired clearing cookie does not count.
func AssertNoCookie(t *testing.T, w *httptest.ResponseRecorder, name string) {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name && c.Value != "" && c.MaxAge >= 0 {
			t.Errorf("cookie %q set to %q, want it absent", name, c.Value)
		}
	}
}

// Request builders.

// NewJSONRequest builds a request carrying a JSON body, the way the SPA
// talks to the API.
func NewJSONRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DecodeJSON decodes a response body into T.
func DecodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var result T
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response body: %v (body %s)", err, w.Body.String())
	}
	return result
}
