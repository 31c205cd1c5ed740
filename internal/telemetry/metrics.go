// Package telemetry exposes Prometheus metrics for book ingestion, routing,
// and the orchestration loop.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every collector on a private registry so multiple
// instances (tests included) never collide on the default registerer.
type Metrics struct {
	registry *prometheus.Registry

	BookUpdates     *prometheus.CounterVec
	BookErrors      *prometheus.CounterVec
	RouteRequests   *prometheus.CounterVec
	RouteSegments   prometheus.Histogram
	RouteFillRatio  prometheus.Histogram
	ModuleTicks     *prometheus.CounterVec
	TickDuration    *prometheus.HistogramVec
	SessionState    prometheus.Gauge
	SnapshotSources *prometheus.GaugeVec
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		BookUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossbook_book_updates_total",
				Help: "Total order book updates accepted by source",
			},
			[]string{"source"},
		),
		BookErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossbook_book_errors_total",
				Help: "Total order book updates rejected by source",
			},
			[]string{"source"},
		),
		RouteRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossbook_route_requests_total",
				Help: "Total route requests by instrument and result",
			},
			[]string{"instrument", "result"},
		),
		RouteSegments: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crossbook_route_segments",
				Help:    "Segments per generated route",
				Buckets: []float64{1, 2, 3, 4, 5, 8, 12},
			},
		),
		RouteFillRatio: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crossbook_route_fill_ratio",
				Help:    "Filled size over requested size per route",
				Buckets: []float64{0.1, 0.25, 0.5, 0.75, 0.9, 0.99, 1.0},
			},
		),
		ModuleTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossbook_module_ticks_total",
				Help: "Strategy module ticks by module and status",
			},
			[]string{"module", "status"},
		),
		TickDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crossbook_tick_duration_seconds",
				Help:    "Strategy module tick duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"module"},
		),
		SessionState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "crossbook_session_state",
				Help: "Orchestrator session state (0=running 1=halted_by_risk 2=completed_on_target)",
			},
		),
		SnapshotSources: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "crossbook_snapshot_sources",
				Help: "Contributing source count in the latest snapshot per instrument",
			},
			[]string{"instrument"},
		),
	}

	m.registry.MustRegister(
		m.BookUpdates,
		m.BookErrors,
		m.RouteRequests,
		m.RouteSegments,
		m.RouteFillRatio,
		m.ModuleTicks,
		m.TickDuration,
		m.SessionState,
		m.SnapshotSources,
	)
	return m
}

// Gatherer exposes the underlying registry for scraping and tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
