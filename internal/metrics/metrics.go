package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rva_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rva_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	bodyCalculationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rva_body_calculations_total",
			Help: "Per-body position calculations by outcome (ok, error, derived, dependency_failed).",
		},
		[]string{"body", "outcome"},
	)

	chartDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rva_chart_duration_seconds",
			Help:    "Time to compute one full chart, including session acquisition.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"result"},
	)

	ephemerisSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rva_ephemeris_sessions_total",
			Help: "Ephemeris sessions opened, by engine.",
		},
		[]string{"engine"},
	)

	ephemerisSessionsOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rva_ephemeris_sessions_open",
			Help: "Ephemeris sessions currently open, by engine.",
		},
		[]string{"engine"},
	)

	batchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rva_batch_size",
			Help:    "Number of charts per batch request.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(bodyCalculationsTotal)
	prometheus.MustRegister(chartDurationSeconds)
	prometheus.MustRegister(ephemerisSessionsTotal)
	prometheus.MustRegister(ephemerisSessionsOpen)
	prometheus.MustRegister(batchSize)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// knownRoutes are exposed as-is in the path label. Everything else is
// collapsed to "other" so scanners cannot blow up label cardinality.
var knownRoutes = map[string]bool{
	"/":                        true,
	"/calculate-planets":       true,
	"/calculate-planets/batch": true,
	"/healthz":                 true,
	"/readyz":                  true,
	"/metrics":                 true,
}

func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		path := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(duration)
	})
}

// RecordBody counts one body calculation outcome.
func RecordBody(body, outcome string) {
	bodyCalculationsTotal.WithLabelValues(body, outcome).Inc()
}

// ObserveChart records how long a chart took; ok is false for request-level failures.
func ObserveChart(d time.Duration, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	chartDurationSeconds.WithLabelValues(result).Observe(d.Seconds())
}

// SessionOpened records an ephemeris session acquisition.
func SessionOpened(engine string) {
	ephemerisSessionsTotal.WithLabelValues(engine).Inc()
	ephemerisSessionsOpen.WithLabelValues(engine).Inc()
}

// SessionClosed records an ephemeris session release.
func SessionClosed(engine string) {
	ephemerisSessionsOpen.WithLabelValues(engine).Dec()
}

// ObserveBatch records the number of charts in a batch request.
func ObserveBatch(n int) {
	batchSize.Observe(float64(n))
}
