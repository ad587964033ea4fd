package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus-compatible metrics collection for workflow
// execution monitoring in production environments.
//
// Metrics exposed (all namespaced with "research_"):
//
//  1. inflight_runs (gauge): Number of workflow runs currently executing.
//  2. runs_total (counter): Completed runs by terminal status
//     (completed/failed/canceled).
//  3. step_latency_ms (histogram): Node execution duration in milliseconds.
//     Labels: node_id, status (success/error).
//  4. sources_gathered_total (counter): Web sources accumulated across runs.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := NewMetrics(registry)
//	engine.SetMetrics(metrics)
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// Thread-safe: all methods delegate to prometheus collectors which handle
// concurrent updates internally.
type Metrics struct {
	inflightRuns prometheus.Gauge
	runsTotal    *prometheus.CounterVec
	stepLatency  *prometheus.HistogramVec
	sources      prometheus.Counter
}

// NewMetrics creates workflow metrics registered on the given registerer.
//
// Pass prometheus.DefaultRegisterer for the process-global registry, or a
// fresh prometheus.NewRegistry() for isolated collection (tests, multiple
// engines in one process).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		inflightRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "research",
			Name:      "inflight_runs",
			Help:      "Number of workflow runs currently executing.",
		}),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "research",
			Name:      "runs_total",
			Help:      "Completed workflow runs by terminal status.",
		}, []string{"status"}),
		stepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "research",
			Name:      "step_latency_ms",
			Help:      "Node execution duration in milliseconds.",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000},
		}, []string{"node_id", "status"}),
		sources: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "research",
			Name:      "sources_gathered_total",
			Help:      "Web sources accumulated across all runs.",
		}),
	}
}

// RunStarted marks a workflow run as in flight.
func (m *Metrics) RunStarted() {
	m.inflightRuns.Inc()
}

// RunFinished marks a run as finished with the given terminal status
// (completed, failed, canceled).
func (m *Metrics) RunFinished(status string) {
	m.inflightRuns.Dec()
	m.runsTotal.WithLabelValues(status).Inc()
}

// ObserveStep records one node execution's duration and outcome.
func (m *Metrics) ObserveStep(nodeID string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.stepLatency.WithLabelValues(nodeID, status).Observe(float64(d.Milliseconds()))
}

// AddSources records newly gathered web sources.
func (m *Metrics) AddSources(n int) {
	if n > 0 {
		m.sources.Add(float64(n))
	}
}
