package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"goodcompany/internal/platform/metrics"
)

// LatencyMiddleware records per-route request counts and durations. Route
// labels use the chi pattern, not the raw path, to keep cardinality bounded.
func LatencyMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(route, r.Method, recorder.status, start)
		})
	}
}
