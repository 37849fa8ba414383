package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the request metrics aggregator. It is constructed at startup and
// injected where needed; there is no process-global registry.
type Metrics struct {
	registry         *prometheus.Registry
	requestCounter   *prometheus.CounterVec
	responseTimeHist *prometheus.HistogramVec
}

// New creates a metrics aggregator with its own registry
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "api_request_count",
		Help: "Inventory API request count",
	}, []string{"path", "method", "status", "http_code", "error_code"})

	responseTimeHist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "api_response_time_seconds",
		Help:    "Inventory API request time",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method", "status", "http_code"})

	registry.MustRegister(requestCounter, responseTimeHist)

	return &Metrics{
		registry:         registry,
		requestCounter:   requestCounter,
		responseTimeHist: responseTimeHist,
	}
}

// ObserveRequest records one finished request in both the counter and the
// latency histogram. status is "ok" or "error"; errorCode is empty for
// successful requests.
func (m *Metrics) ObserveRequest(path, method, status, httpCode, errorCode string, latency time.Duration) {
	m.requestCounter.WithLabelValues(path, method, status, httpCode, errorCode).Inc()
	m.responseTimeHist.WithLabelValues(path, method, status, httpCode).Observe(latency.Seconds())
}

// Handler returns the Prometheus exposition handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Counter returns the request counter for one label set, used by tests
func (m *Metrics) Counter(path, method, status, httpCode, errorCode string) prometheus.Counter {
	return m.requestCounter.WithLabelValues(path, method, status, httpCode, errorCode)
}

// Registry exposes the underlying registry, used by tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
