package flow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for workflow execution.
//
// Exposed metrics (namespace "arflow"):
//   - runs_started_total, runs_resumed_total
//   - runs_completed_total, runs_suspended_total, runs_failed_total
//   - active_runs (gauge): runs currently traversing the graph. Suspended
//     runs do not count, they hold no resources.
//   - node_duration_seconds (histogram, labels node/status): per-node
//     execution latency.
//
// Attach with WithMetrics and expose the registry via promhttp. A nil
// *Metrics is valid and records nothing, so the executor never branches on
// whether metrics are configured.
type Metrics struct {
	runsStarted   prometheus.Counter
	runsResumed   prometheus.Counter
	runsCompleted prometheus.Counter
	runsSuspended prometheus.Counter
	runsFailed    prometheus.Counter
	activeRuns    prometheus.Gauge
	nodeDuration  *prometheus.HistogramVec
}

// NewMetrics creates and registers the workflow metrics with the given
// registerer (e.g. prometheus.NewRegistry() or prometheus.DefaultRegisterer).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "arflow",
			Name:      "runs_started_total",
			Help:      "Workflow runs started.",
		}),
		runsResumed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "arflow",
			Name:      "runs_resumed_total",
			Help:      "Suspended workflow runs resumed.",
		}),
		runsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "arflow",
			Name:      "runs_completed_total",
			Help:      "Workflow runs that reached a terminal node.",
		}),
		runsSuspended: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "arflow",
			Name:      "runs_suspended_total",
			Help:      "Workflow runs suspended pending an external decision.",
		}),
		runsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "arflow",
			Name:      "runs_failed_total",
			Help:      "Workflow runs that failed with a fatal error.",
		}),
		activeRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "arflow",
			Name:      "active_runs",
			Help:      "Runs currently traversing the graph.",
		}),
		nodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arflow",
			Name:      "node_duration_seconds",
			Help:      "Node execution latency.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		}, []string{"node", "status"}),
	}
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.runsStarted.Inc()
	m.activeRuns.Inc()
}

func (m *Metrics) runResumed() {
	if m == nil {
		return
	}
	m.runsResumed.Inc()
	m.activeRuns.Inc()
}

func (m *Metrics) runCompleted() {
	if m == nil {
		return
	}
	m.runsCompleted.Inc()
	m.activeRuns.Dec()
}

func (m *Metrics) runSuspended() {
	if m == nil {
		return
	}
	m.runsSuspended.Inc()
	m.activeRuns.Dec()
}

func (m *Metrics) runFailed() {
	if m == nil {
		return
	}
	m.runsFailed.Inc()
	m.activeRuns.Dec()
}

func (m *Metrics) nodeExecuted(node string, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "error"
	}
	m.nodeDuration.WithLabelValues(node, status).Observe(d.Seconds())
}
