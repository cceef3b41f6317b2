package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/datavend-backend/pkg/logger"
	"github.com/angelmondragon/datavend-backend/pkg/metrics"
)

// Logging writes one entry per request once it completes and feeds the HTTP
// metrics. Server errors log at warn level; everything else at info. Health
// probes are only logged at debug level.
func Logging(logg *logger.Logger, httpMetrics *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newRecorder(w, false)
			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			route := matchedRoute(r)
			status := rec.statusCode()
			httpMetrics.Observe(r.Method, route, status, elapsed)
			if logg == nil {
				return
			}

			ctx := logg.WithFields(r.Context(), map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"route":       route,
				"status":      status,
				"bytes":       rec.written,
				"duration_ms": elapsed.Milliseconds(),
			})
			switch {
			case status >= http.StatusInternalServerError:
				logg.Warn(ctx, "request.complete")
			case isProbe(route):
				logg.Debug(ctx, "request.complete")
			default:
				logg.Info(ctx, "request.complete")
			}
		})
	}
}

// matchedRoute is read after the handler ran, once chi has resolved the full
// pattern.
func matchedRoute(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}

func isProbe(route string) bool {
	return route == "/health/live" || route == "/health/ready"
}
