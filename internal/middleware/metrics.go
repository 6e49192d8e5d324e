package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/observability"

	"github.com/go-chi/chi/v5"
)

// Metrics records request count and latency per route. The path label uses
// the chi route pattern, so /api/v1/transactions/{id} stays one series no
// matter how many transactions exist.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			labels := []string{r.Method, routePattern(r), strconv.Itoa(rec.status)}
			observability.HTTPRequestDuration.WithLabelValues(labels...).
				Observe(time.Since(start).Seconds())
			observability.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
		})
	}
}

// routePattern is only populated after the inner chi router has matched, so
// it must be read after next.ServeHTTP returns. Unmatched requests fall back
// to the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// statusRecorder captures the status code written by the handler chain.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// Hijack lets the notification socket upgrade through the recorder.
func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
