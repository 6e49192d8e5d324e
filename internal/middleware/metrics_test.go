package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"fintrack/internal/observability"

	"github.com/go-chi/chi/v5"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetricsRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(Metrics())
	r.Get("/api/v1/transactions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/api/v1/categories", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	return r
}

func TestMetrics_CountsByRoutePattern(t *testing.T) {
	router := newMetricsRouter()

	counter := observability.HTTPRequestsTotal.WithLabelValues(
		http.MethodGet, "/api/v1/transactions/{id}", "200")
	before := promtestutil.ToFloat64(counter)

	// Distinct ids collapse into one labeled series.
	for _, id := range []string{"tx-1", "tx-2", "tx-3"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/transactions/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, before+3, promtestutil.ToFloat64(counter))
}

func TestMetrics_RecordsStatusLabel(t *testing.T) {
	router := newMetricsRouter()

	counter := observability.HTTPRequestsTotal.WithLabelValues(
		http.MethodPost, "/api/v1/categories", "201")
	before := promtestutil.ToFloat64(counter)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/categories", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, before+1, promtestutil.ToFloat64(counter))
}

func TestMetrics_UnmatchedRouteUsesRawPath(t *testing.T) {
	// Without a chi route context the middleware falls back to the URL path.
	handler := Metrics()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	counter := observability.HTTPRequestsTotal.WithLabelValues(
		http.MethodGet, "/no/such/route", "404")
	before := promtestutil.ToFloat64(counter)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/no/such/route", nil))

	assert.Equal(t, before+1, promtestutil.ToFloat64(counter))
}

func TestStatusRecorder_DefaultsToOK(t *testing.T) {
	handler := Metrics()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("implicit 200"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/implicit", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "implicit 200", w.Body.String())
}

func TestStatusRecorder_CapturesWrittenStatus(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}

	rec.WriteHeader(http.StatusConflict)

	assert.Equal(t, http.StatusConflict, rec.status)
}

func TestStatusRecorder_HijackUnsupported(t *testing.T) {
	// httptest.ResponseRecorder is not a Hijacker.
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}

	conn, rw, err := rec.Hijack()

	require.Error(t, err)
	assert.Nil(t, conn)
	assert.Nil(t, rw)
}
