package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "licensewatch_http_requests_total",
			Help: "Total HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "licensewatch_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	sweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "licensewatch_sweeps_total",
			Help: "Total reminder sweeps by result",
		},
		[]string{"result"},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "licensewatch_sweep_duration_seconds",
			Help:    "Duration of one full reminder sweep",
			Buckets: []float64{.1, .5, 1, 5, 15, 60, 300},
		},
	)

	lastSweepTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "licensewatch_last_sweep_timestamp_seconds",
			Help: "Unix time of the last completed sweep",
		},
	)

	assetsScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "licensewatch_assets_scanned_total",
			Help: "Total candidate assets evaluated across sweeps",
		},
	)

	remindersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "licensewatch_reminders_total",
			Help: "Total reminder delivery attempts by channel and outcome",
		},
		[]string{"channel", "status"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordSweep records the outcome and duration of one sweep.
func RecordSweep(result string, duration time.Duration) {
	sweepsTotal.WithLabelValues(result).Inc()
	sweepDuration.Observe(duration.Seconds())
	lastSweepTimestamp.SetToCurrentTime()
}

// RecordAssetsScanned adds to the evaluated-candidate counter.
func RecordAssetsScanned(count int) {
	assetsScanned.Add(float64(count))
}

// RecordReminder records one channel delivery attempt.
func RecordReminder(channel, status string) {
	remindersTotal.WithLabelValues(channel, status).Inc()
}

// RecordRequest records HTTP request metrics.
func RecordRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		RecordRequest(r.Method, r.URL.Path, wrapped.status, time.Since(start))
	})
}
