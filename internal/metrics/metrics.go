package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventhub",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eventhub",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "eventhub",
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	admissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventhub",
			Name:      "admissions_total",
			Help:      "Participation requests created, by initial status",
		},
		[]string{"status"}, // CONFIRMED, PENDING
	)

	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventhub",
			Name:      "event_state_transitions_total",
			Help:      "Event lifecycle transitions",
		},
		[]string{"to"},
	)

	cascadeRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "eventhub",
			Name:      "cascade_rejections_total",
			Help:      "Pending requests auto-rejected when an event filled up",
		},
	)

	statsDegradedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "eventhub",
			Name:      "stats_degraded_total",
			Help:      "Reads served with zero views because the stats service failed",
		},
	)
)

func RecordAdmission(status string) {
	admissionsTotal.WithLabelValues(status).Inc()
}

func RecordStateTransition(to string) {
	stateTransitionsTotal.WithLabelValues(to).Inc()
}

func RecordCascadeRejections(n int) {
	cascadeRejectionsTotal.Add(float64(n))
}

func RecordStatsDegraded() {
	statsDegradedTotal.Inc()
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records HTTP RED metrics keyed by the chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
