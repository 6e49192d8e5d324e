package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/observability"
	"fintrack/internal/ratelimit"
)

// RateLimit gates requests through the sliding-window limiter under the given
// policy namespace. It runs before auth and CSRF so abusive traffic is shed
// before any session lookup or cryptographic comparison happens.
//
// Every gated response carries X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset so clients can self-throttle.
func RateLimit(limiter *ratelimit.Limiter, namespace string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ClientIP(r)

			decision, err := limiter.Allow(r.Context(), namespace, client)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

			if err != nil {
				// Fail-closed store outage: reject until the store recovers.
				slog.Error("rate limit store failure, rejecting",
					slog.String("namespace", namespace),
					slog.String("client", client),
					slog.String("error", err.Error()),
				)
				observability.RateLimitRejections.WithLabelValues(namespace, "store_failure").Inc()
				http.Error(w, `{"error":"Too many requests. Please try again later."}`, http.StatusTooManyRequests)
				return
			}

			if !decision.Admitted {
				observability.RateLimitRejections.WithLabelValues(namespace, "quota").Inc()
				http.Error(w, `{"error":"Too many requests. Please try again later."}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP resolves the originating client address with defined precedence:
// first entry of X-Forwarded-For, then X-Real-IP, then a loopback fallback
// for untraceable origins. RemoteAddr is deliberately not used: behind the
// proxy it is the proxy's address, which would collapse all clients into one
// rate-limit key.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found || first != "" {
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	return "127.0.0.1"
}
