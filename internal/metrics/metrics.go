// Package metrics exposes Prometheus counters for the Kafka listener
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Error kinds recorded by RecordError
const (
	ErrorTransport      = "transport"
	ErrorDecode         = "decode"
	ErrorUnsupportedAPI = "unsupported_api_key"
)

// Config holds metrics configuration
type Config struct {
	// Namespace is the prefix for all metrics
	Namespace string
	// IncludeGoCollector adds Go runtime metrics
	IncludeGoCollector bool
	// IncludeProcessCollector adds process metrics
	IncludeProcessCollector bool
	// LatencyBuckets are the request duration buckets in seconds
	LatencyBuckets []float64
}

// DefaultConfig returns the configuration used by kafkad
func DefaultConfig() Config {
	return Config{
		Namespace:               "kaf",
		IncludeGoCollector:      true,
		IncludeProcessCollector: true,
		LatencyBuckets:          []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}
}

// Registry owns a private Prometheus registry and the server's collectors
type Registry struct {
	promRegistry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	Errors            *prometheus.CounterVec
	ConnectionsTotal  prometheus.Counter
	ActiveConnections prometheus.Gauge
	BytesReceived     prometheus.Counter
	BytesSent         prometheus.Counter
}

// NewRegistry creates and registers all collectors
func NewRegistry(config Config) *Registry {
	reg := prometheus.NewRegistry()
	if config.IncludeGoCollector {
		reg.MustRegister(collectors.NewGoCollector())
	}
	if config.IncludeProcessCollector {
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	r := &Registry{
		promRegistry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "requests_total",
			Help:      "Requests handled, by api and version.",
		}, []string{"api", "version"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from a decoded request to its written response.",
			Buckets:   config.LatencyBuckets,
		}, []string{"api"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "errors_total",
			Help:      "Connection-level failures, by kind.",
		}, []string{"kind"}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "connections_total",
			Help:      "Connections accepted.",
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "active_connections",
			Help:      "Connections currently open.",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "received_bytes_total",
			Help:      "Request bytes read, including length prefixes.",
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "sent_bytes_total",
			Help:      "Response bytes written, including length prefixes.",
		}),
	}
	reg.MustRegister(r.RequestsTotal, r.RequestDuration, r.Errors,
		r.ConnectionsTotal, r.ActiveConnections, r.BytesReceived, r.BytesSent)
	return r
}

// ConnectionOpened records an accepted connection
func (r *Registry) ConnectionOpened() {
	r.ConnectionsTotal.Inc()
	r.ActiveConnections.Inc()
}

// ConnectionClosed records a closed connection
func (r *Registry) ConnectionClosed() {
	r.ActiveConnections.Dec()
}

// RecordRequest records one request/response exchange
func (r *Registry) RecordRequest(api string, version int16, received, sent int, elapsed time.Duration) {
	r.RequestsTotal.WithLabelValues(api, strconv.Itoa(int(version))).Inc()
	r.RequestDuration.WithLabelValues(api).Observe(elapsed.Seconds())
	r.BytesReceived.Add(float64(received))
	r.BytesSent.Add(float64(sent))
}

// RecordError counts a failure of the given kind
func (r *Registry) RecordError(kind string) {
	r.Errors.WithLabelValues(kind).Inc()
}

// Handler returns an HTTP handler for the /metrics endpoint
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.promRegistry, promhttp.HandlerOpts{Registry: r.promRegistry})
}
