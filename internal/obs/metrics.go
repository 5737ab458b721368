package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// LaunchesTotal counts LTI launches by terminal outcome
	// (redirected, invalid_signature, not_found, ...).
	LaunchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lti_launches_total",
			Help: "LTI launch attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// LaunchDuration observes end-to-end launch handling time.
	LaunchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lti_launch_duration_seconds",
		Help:    "LTI launch latency in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	// PublishTotal counts publish/unpublish operations by outcome.
	PublishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lti_publish_total",
			Help: "Publish lifecycle operations by outcome.",
		},
		[]string{"op", "outcome"},
	)
)

// Init registers metrics in the default registry. Call once from main.
func Init() {
	prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration,
		LaunchesTotal, LaunchDuration, PublishTotal)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument wraps an http.Handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		httpInFlight.Dec()
		status := strconv.Itoa(sw.code)
		path := routePattern(r)
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

// routePattern keeps the path label bounded: "/assistant/{id}/publish"
// instead of one label value per assistant id.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
