// Package metrics provides Prometheus metrics for the weather
// aggregator's pipeline, store, and sweeper.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors registered by the aggregator.
type Metrics struct {
	PutsTotal      *prometheus.CounterVec
	GetsTotal      *prometheus.CounterVec
	QueueFullTotal prometheus.Counter
	QueueDepth     prometheus.Gauge
	WorkerPanics   prometheus.Counter

	StationsTracked   prometheus.Gauge
	PublisherClocks   prometheus.Gauge
	ReaderClocks      prometheus.Gauge
	SweepRunsTotal    prometheus.Counter
	SweepExpiredTotal prometheus.Counter
	PutGeneration     prometheus.Counter

	registry *prometheus.Registry
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.PutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_aggregator_puts_total",
			Help: "Total number of PUT requests processed, by outcome.",
		},
		[]string{"outcome"}, // created, updated, rejected, error
	)

	m.GetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_aggregator_gets_total",
			Help: "Total number of GET requests processed, by filter presence and outcome.",
		},
		[]string{"filtered", "outcome"},
	)

	m.QueueFullTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weather_aggregator_queue_full_total",
			Help: "Total number of requests rejected because the work queue was full.",
		},
	)

	m.QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "weather_aggregator_queue_depth",
			Help: "Current number of work items waiting in the pipeline queue.",
		},
	)

	m.WorkerPanics = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weather_aggregator_worker_panics_total",
			Help: "Total number of recovered panics in the pipeline worker.",
		},
	)

	m.StationsTracked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "weather_aggregator_stations_tracked",
			Help: "Current number of stations with a live record.",
		},
	)

	m.PublisherClocks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "weather_aggregator_publisher_clocks_tracked",
			Help: "Current number of publisher peers with a tracked clock.",
		},
	)

	m.ReaderClocks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "weather_aggregator_reader_clocks_tracked",
			Help: "Current number of reader peers with a tracked clock.",
		},
	)

	m.SweepRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weather_aggregator_sweep_runs_total",
			Help: "Total number of expiry sweeps performed.",
		},
	)

	m.SweepExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weather_aggregator_sweep_expired_total",
			Help: "Total number of records removed by the expiry sweeper.",
		},
	)

	m.PutGeneration = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weather_aggregator_put_generation",
			Help: "Monotonically increasing generation counter, incremented once per accepted PUT across all stations.",
		},
	)

	m.registry.MustRegister(
		m.PutsTotal,
		m.GetsTotal,
		m.QueueFullTotal,
		m.QueueDepth,
		m.WorkerPanics,
		m.StationsTracked,
		m.PublisherClocks,
		m.ReaderClocks,
		m.SweepRunsTotal,
		m.SweepExpiredTotal,
		m.PutGeneration,
	)
	m.registry.MustRegister(prometheus.NewGoCollector())
	m.registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	return m
}

// Handler returns an HTTP handler serving this registry's metrics in
// Prometheus exposition format, mounted on the admin surface only.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// RecordPut records a PUT outcome: "created", "updated", "rejected", or "error".
func (m *Metrics) RecordPut(outcome string) {
	m.PutsTotal.WithLabelValues(outcome).Inc()
}

// RecordGet records a GET outcome with whether a station filter was applied.
func (m *Metrics) RecordGet(filtered bool, outcome string) {
	label := "false"
	if filtered {
		label = "true"
	}
	m.GetsTotal.WithLabelValues(label, outcome).Inc()
}
