package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	backtestsTotal      *prometheus.CounterVec
	backtestDuration    prometheus.Histogram
	strategyFallbacks   prometheus.Counter
	uploadsTotal        *prometheus.CounterVec
	exportsTotal        *prometheus.CounterVec
	sessionsActive      prometheus.Gauge
	staleResultsDropped prometheus.Counter
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.backtestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantview_backtests_total",
			Help: "Total number of backtest calls to the remote service",
		},
		[]string{"status"},
	)
	r.backtestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quantview_backtest_duration_seconds",
			Help:    "Remote backtest call duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
		},
	)
	r.strategyFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quantview_strategy_fallbacks_total",
			Help: "Strategy list fetches answered from the built-in list",
		},
	)
	r.uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantview_uploads_total",
			Help: "Reference image uploads by result",
		},
		[]string{"result"},
	)
	r.exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantview_exports_total",
			Help: "PNG exports by result",
		},
		[]string{"result"},
	)
	r.sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quantview_sessions_active",
			Help: "Number of live dashboard sessions",
		},
	)
	r.staleResultsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quantview_stale_results_dropped_total",
			Help: "Backtest completions discarded because a newer request superseded them",
		},
	)

	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.strategyFallbacks)
	reg.MustRegister(r.uploadsTotal)
	reg.MustRegister(r.exportsTotal)
	reg.MustRegister(r.sessionsActive)
	reg.MustRegister(r.staleResultsDropped)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordBacktest records a remote backtest call.
func (r *Registry) RecordBacktest(status string, duration float64) {
	r.backtestsTotal.WithLabelValues(status).Inc()
	r.backtestDuration.Observe(duration)
}

// RecordStrategyFallback records a strategy fetch served from the built-in list.
func (r *Registry) RecordStrategyFallback() {
	r.strategyFallbacks.Inc()
}

// RecordUpload records an upload outcome ("accepted", "rejected", "superseded", "error").
func (r *Registry) RecordUpload(result string) {
	r.uploadsTotal.WithLabelValues(result).Inc()
}

// RecordExport records an export outcome ("ok", "skipped", "error").
func (r *Registry) RecordExport(result string) {
	r.exportsTotal.WithLabelValues(result).Inc()
}

// SetSessionsActive sets the number of live sessions.
func (r *Registry) SetSessionsActive(count int) {
	r.sessionsActive.Set(float64(count))
}

// RecordStaleResult records a discarded out-of-date backtest completion.
func (r *Registry) RecordStaleResult() {
	r.staleResultsDropped.Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
