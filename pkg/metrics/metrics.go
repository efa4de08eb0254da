// Package metrics exposes Prometheus collectors for the user administration service.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "useradmin",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "useradmin",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	accountOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "useradmin",
			Subsystem: "accounts",
			Name:      "operations_total",
			Help:      "Account operations by outcome code.",
		},
		[]string{"operation", "outcome"},
	)

	accountDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "useradmin",
			Subsystem: "accounts",
			Name:      "operation_duration_seconds",
			Help:      "Duration of account operations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		accountOperations,
		accountDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Recorder records account operations into the package collectors.
type Recorder struct{}

// NewRecorder returns a Recorder backed by Registry.
func NewRecorder() Recorder {
	return Recorder{}
}

// RecordAccountOperation counts one account operation. outcome is "ok" or an error code.
func (Recorder) RecordAccountOperation(operation, outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "ok"
	}
	if duration <= 0 {
		duration = time.Microsecond
	}
	accountOperations.WithLabelValues(operation, outcome).Inc()
	accountDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// InstrumentHandler wraps next with HTTP request metrics labelled by chi route pattern.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		route := routePattern(r)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// routePattern keeps label cardinality bounded by using the matched pattern, not the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
