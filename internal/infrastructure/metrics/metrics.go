// Package metrics exposes Prometheus metrics of the HTTP layer, the
// dispatcher and the storage pool.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stockbook"

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	DispatchTotal    *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	m.DispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_operations_total",
			Help:      "Resource operations by outcome",
		},
		[]string{"resource", "operation", "outcome"},
	)

	m.DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_operation_duration_seconds",
			Help:      "Resource operation duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"resource", "operation"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DispatchTotal,
		m.DispatchDuration,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records one finished request. path is the route
// template, not the raw URL, to keep label cardinality bounded.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveDispatch implements resource.Recorder.
func (m *Metrics) ObserveDispatch(resource, operation, outcome string, elapsed time.Duration) {
	m.DispatchTotal.WithLabelValues(resource, operation, outcome).Inc()
	m.DispatchDuration.WithLabelValues(resource, operation).Observe(elapsed.Seconds())
}

// PoolStatter reports connection pool usage.
type PoolStatter interface {
	Counts() (total, acquired, idle int32)
}

// RegisterPool exports the gauges of a connection pool.
func (m *Metrics) RegisterPool(p PoolStatter) {
	gauge := func(name, help string, read func() float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, read)
	}
	m.registry.MustRegister(
		gauge("connections_total", "Open connections", func() float64 { t, _, _ := p.Counts(); return float64(t) }),
		gauge("connections_acquired", "Connections in use", func() float64 { _, a, _ := p.Counts(); return float64(a) }),
		gauge("connections_idle", "Idle connections", func() float64 { _, _, i := p.Counts(); return float64(i) }),
	)
}
