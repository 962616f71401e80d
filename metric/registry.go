// Package metric provides Prometheus instrumentation for the query engine
// and its transports, plus the HTTP endpoint that exposes it.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry bundles the engine metrics with their Prometheus registry so the
// exposition handler and the engine share one collector set.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics
}

// NewRegistry creates a registry with the engine metrics and Go runtime
// collectors pre-registered.
func NewRegistry() *Registry {
	r := &Registry{
		prometheusRegistry: prometheus.NewRegistry(),
		Metrics:            NewMetrics(),
	}

	r.prometheusRegistry.MustRegister(
		r.Metrics.QueriesTotal,
		r.Metrics.QueryDuration,
		r.Metrics.RowsReduced,
		r.Metrics.RowsDropped,
		r.Metrics.EdgesReturned,
		r.Metrics.MutationsTotal,
		r.Metrics.MutationDuration,
		r.Metrics.NATSConnected,
		r.Metrics.NATSReconnects,
	)

	r.prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// PrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}
