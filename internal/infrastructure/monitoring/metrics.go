package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Render metrics
	RendersTotal   *prometheus.CounterVec
	RenderDuration prometheus.Histogram

	// Session metrics
	SessionsMinted  prometheus.Counter
	SessionsResumed prometheus.Counter

	// State persistence metrics
	StatePersistTotal *prometheus.CounterVec

	// System metrics
	Uptime prometheus.Gauge

	registry  *prometheus.Registry
	startTime time.Time
}

// NewMetrics creates a metrics collector backed by its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry:  registry,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "renderbox_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "renderbox_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),

		RendersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "renderbox_renders_total",
				Help: "Total number of render attempts by outcome",
			},
			[]string{"outcome"},
		),
		RenderDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "renderbox_render_duration_seconds",
				Help:    "End-to-end render duration in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
			},
		),
		SessionsMinted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "renderbox_sessions_minted_total",
				Help: "Total number of freshly minted session identifiers",
			},
		),
		SessionsResumed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "renderbox_sessions_resumed_total",
				Help: "Total number of renders honoring a verified session identifier",
			},
		),

		StatePersistTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "renderbox_state_persist_total",
				Help: "Total number of session state persistence attempts by outcome",
			},
			[]string{"outcome"},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "renderbox_uptime_seconds",
				Help: "Process uptime in seconds",
			},
		),
	}
}

// Registry exposes the backing registry for the exposition handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterContextGauge exposes the number of currently open browser contexts
// as a live gauge. The engine is authoritative for the count, so the gauge
// reads it on scrape instead of keeping independent bookkeeping.
func (m *Metrics) RegisterContextGauge(count func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "renderbox_contexts_active",
			Help: "Number of currently open browser contexts",
		},
		count,
	))
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}

// RecordRender records one render attempt.
func (m *Metrics) RecordRender(outcome string, duration time.Duration) {
	m.RendersTotal.WithLabelValues(outcome).Inc()
	m.RenderDuration.Observe(duration.Seconds())
}

// RecordStatePersist records one state persistence attempt.
func (m *Metrics) RecordStatePersist(ok bool) {
	outcome := "stored"
	if !ok {
		outcome = "failed"
	}
	m.StatePersistTotal.WithLabelValues(outcome).Inc()
}

// UptimeSeconds returns seconds elapsed since metrics initialization.
func (m *Metrics) UptimeSeconds() float64 {
	return time.Since(m.startTime).Seconds()
}
