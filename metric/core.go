package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all engine-level metrics (not entity-specific)
type Metrics struct {
	// Query metrics
	QueriesTotal     *prometheus.CounterVec
	QueryDuration    *prometheus.HistogramVec
	RowsReduced      prometheus.Counter
	RowsDropped      prometheus.Counter
	EdgesReturned    prometheus.Histogram

	// Mutation metrics
	MutationsTotal   *prometheus.CounterVec
	MutationDuration *prometheus.HistogramVec

	// NATS metrics
	NATSConnected  prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all engine metrics
func NewMetrics() *Metrics {
	return &Metrics{
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cyrisk",
				Subsystem: "queries",
				Name:      "total",
				Help:      "Total number of queries executed",
			},
			[]string{"operation", "entity_type", "status"},
		),

		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cyrisk",
				Subsystem: "queries",
				Name:      "duration_seconds",
				Help:      "Query execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "entity_type"},
		),

		RowsReduced: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cyrisk",
				Subsystem: "rows",
				Name:      "reduced_total",
				Help:      "Total number of raw rows reduced to entities",
			},
		),

		RowsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cyrisk",
				Subsystem: "rows",
				Name:      "dropped_total",
				Help:      "Total number of rows dropped as constraint violations",
			},
		),

		EdgesReturned: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "cyrisk",
				Subsystem: "queries",
				Name:      "edges_returned",
				Help:      "Number of edges returned per connection",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
			},
		),

		MutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cyrisk",
				Subsystem: "mutations",
				Name:      "total",
				Help:      "Total number of mutation statements executed",
			},
			[]string{"kind", "entity_type", "status"},
		),

		MutationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cyrisk",
				Subsystem: "mutations",
				Name:      "duration_seconds",
				Help:      "Mutation execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind", "entity_type"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "cyrisk",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cyrisk",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// RecordQuery increments the query counter
func (m *Metrics) RecordQuery(operation, entityType, status string) {
	m.QueriesTotal.WithLabelValues(operation, entityType, status).Inc()
}

// RecordQueryDuration records query execution time
func (m *Metrics) RecordQueryDuration(operation, entityType string, duration time.Duration) {
	m.QueryDuration.WithLabelValues(operation, entityType).Observe(duration.Seconds())
}

// RecordRowsReduced adds to the reduced row counter
func (m *Metrics) RecordRowsReduced(n int) {
	m.RowsReduced.Add(float64(n))
}

// RecordRowDropped increments the constraint violation counter
func (m *Metrics) RecordRowDropped() {
	m.RowsDropped.Inc()
}

// RecordEdges observes the edge count of one connection
func (m *Metrics) RecordEdges(n int) {
	m.EdgesReturned.Observe(float64(n))
}

// RecordMutation increments the mutation counter
func (m *Metrics) RecordMutation(kind, entityType, status string) {
	m.MutationsTotal.WithLabelValues(kind, entityType, status).Inc()
}

// RecordMutationDuration records mutation execution time
func (m *Metrics) RecordMutationDuration(kind, entityType string, duration time.Duration) {
	m.MutationDuration.WithLabelValues(kind, entityType).Observe(duration.Seconds())
}

// RecordNATSStatus updates the NATS connection status
func (m *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	m.NATSConnected.Set(value)
}

// RecordNATSReconnect increments the reconnection counter
func (m *Metrics) RecordNATSReconnect() {
	m.NATSReconnects.Inc()
}
