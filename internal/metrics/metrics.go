// Package metrics provides Prometheus metrics for the linkarbox server.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkarbox_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkarbox_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Provider metrics
	providerCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkarbox_provider_calls_total",
			Help: "Total calls into cloud-storage providers",
		},
		[]string{"provider", "operation", "status"},
	)

	providerCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkarbox_provider_call_duration_seconds",
			Help:    "Cloud-storage provider call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)

	providerRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkarbox_provider_rate_limit_retries_total",
			Help: "Folder listings retried after a provider 429",
		},
		[]string{"provider"},
	)

	sessionInvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkarbox_provider_session_invalidations_total",
			Help: "Sessions torn down after a provider rejected the token",
		},
		[]string{"provider"},
	)

	// Overlay metrics
	overlayFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkarbox_overlay_failures_total",
			Help: "Enrichment lookups that degraded to empty annotations",
		},
		[]string{"lookup"},
	)

	// Auth metrics
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkarbox_auth_attempts_total",
			Help: "Total authentication attempts",
		},
		[]string{"result"},
	)

	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkarbox_rate_limited_requests_total",
			Help: "Requests rejected by the API rate limiter",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordProviderCall records one adapter call.
func RecordProviderCall(provider, operation string, duration time.Duration, err error) {
	providerCallDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
	status := "success"
	if err != nil {
		status = "error"
	}
	providerCallsTotal.WithLabelValues(provider, operation, status).Inc()
}

// RecordProviderRetry records the single retry after a 429.
func RecordProviderRetry(provider string) {
	providerRetriesTotal.WithLabelValues(provider).Inc()
}

// RecordSessionInvalidation records a session dropped after a provider 401.
func RecordSessionInvalidation(provider string) {
	sessionInvalidationsTotal.WithLabelValues(provider).Inc()
}

// RecordOverlayFailure records an enrichment lookup that fell back to empty.
func RecordOverlayFailure(lookup string) {
	overlayFailuresTotal.WithLabelValues(lookup).Inc()
}

// RecordAuthAttempt records an authentication attempt.
func RecordAuthAttempt(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	authAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordRateLimited records a request rejected by the rate limiter.
func RecordRateLimited() {
	rateLimitedTotal.Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware returns HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		RecordHTTPRequest(r.Method, RouteLabel(r.URL.Path), rw.statusCode, time.Since(start))
	})
}

// RouteLabel trims a path to its resource prefix so file ids and invite
// tokens never become label values: "/api/files/abc/star" -> "/api/files",
// "/invite/<token>" -> "/invite".
func RouteLabel(path string) string {
	segs := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 3)
	keep := 1
	if segs[0] == "api" {
		keep = 2
	}
	if len(segs) > keep {
		segs = segs[:keep]
	}
	return "/" + strings.Join(segs, "/")
}
