// Package metrics exposes Prometheus counters and gauges for the engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the playback engine.
type Metrics struct {
	registry          *prometheus.Registry
	requestsTotal     prometheus.Counter
	clipLoadsTotal    prometheus.Counter
	clipLoadFailures  prometheus.Counter
	seeksTotal        prometheus.Counter
	edlMutationsTotal prometheus.Counter
	errorsTotal       prometheus.Counter
	activeSessions    prometheus.Gauge
	bufferedClips     prometheus.Gauge
}

// New creates and registers Prometheus metrics for the engine.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jumpcut_requests_total",
		Help: "Total number of HTTP requests received",
	})
	clipLoadsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jumpcut_clip_loads_total",
		Help: "Total number of clip buffer loads completed",
	})
	clipLoadFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jumpcut_clip_load_failures_total",
		Help: "Total number of clip loads that failed permanently",
	})
	seeksTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jumpcut_seeks_total",
		Help: "Total number of seek commands accepted",
	})
	edlMutationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jumpcut_edl_mutations_total",
		Help: "Total number of applied EDL mutations, undos and redos included",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jumpcut_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jumpcut_active_sessions",
		Help: "Number of open edit sessions",
	})
	bufferedClips := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jumpcut_buffered_clips",
		Help: "Number of clips currently resident across all sessions",
	})

	registry.MustRegister(
		requestsTotal,
		clipLoadsTotal,
		clipLoadFailures,
		seeksTotal,
		edlMutationsTotal,
		errorsTotal,
		activeSessions,
		bufferedClips,
	)

	return &Metrics{
		registry:          registry,
		requestsTotal:     requestsTotal,
		clipLoadsTotal:    clipLoadsTotal,
		clipLoadFailures:  clipLoadFailures,
		seeksTotal:        seeksTotal,
		edlMutationsTotal: edlMutationsTotal,
		errorsTotal:       errorsTotal,
		activeSessions:    activeSessions,
		bufferedClips:     bufferedClips,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncClipLoads increments the completed clip load counter.
func (m *Metrics) IncClipLoads() {
	m.clipLoadsTotal.Inc()
}

// IncClipLoadFailures increments the permanent clip load failure counter.
func (m *Metrics) IncClipLoadFailures() {
	m.clipLoadFailures.Inc()
}

// IncSeeks increments the seek counter.
func (m *Metrics) IncSeeks() {
	m.seeksTotal.Inc()
}

// IncEDLMutations increments the EDL mutation counter.
func (m *Metrics) IncEDLMutations() {
	m.edlMutationsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// SetBufferedClips sets the resident clips gauge.
func (m *Metrics) SetBufferedClips(n int) {
	m.bufferedClips.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
