package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements lifecycle.Metrics with a small set of Prometheus
// series: enough to alert on a stuck drain or a climbing active-execution
// count without pulling in the full agent/LLM/tool metrics surface the
// teacher's Metrics type carries (those concerns are out of scope here).
type Metrics struct {
	registry *prometheus.Registry

	activeExecutions prometheus.Gauge
	registrations    prometheus.Counter
	unregistrations  prometheus.Counter
	forceCheckpoints prometheus.Counter
	drainDuration    *prometheus.HistogramVec
}

// NewMetrics creates and registers the lifecycle metric series on a fresh
// registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		activeExecutions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentdrain",
			Name:      "active_executions",
			Help:      "Number of agent executions currently registered with the lifecycle controller.",
		}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentdrain",
			Name:      "registrations_total",
			Help:      "Total number of executions registered with the lifecycle controller.",
		}),
		unregistrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentdrain",
			Name:      "unregistrations_total",
			Help:      "Total number of executions unregistered from the lifecycle controller.",
		}),
		forceCheckpoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentdrain",
			Name:      "force_checkpoints_total",
			Help:      "Total number of executions force-checkpointed at the drain deadline.",
		}),
		drainDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentdrain",
			Name:      "drain_duration_seconds",
			Help:      "Time spent in AwaitDrain, labeled by whether the deadline was exceeded.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"timed_out"}),
	}

	reg.MustRegister(m.activeExecutions, m.registrations, m.unregistrations, m.forceCheckpoints, m.drainDuration)
	return m
}

// ExecutionRegistered implements lifecycle.Metrics.
func (m *Metrics) ExecutionRegistered(active int) {
	m.registrations.Inc()
	m.activeExecutions.Set(float64(active))
}

// ExecutionUnregistered implements lifecycle.Metrics.
func (m *Metrics) ExecutionUnregistered(active int) {
	m.unregistrations.Inc()
	m.activeExecutions.Set(float64(active))
}

// ExecutionForceCheckpointed implements lifecycle.Metrics.
func (m *Metrics) ExecutionForceCheckpointed() {
	m.forceCheckpoints.Inc()
}

// DrainCompleted implements lifecycle.Metrics.
func (m *Metrics) DrainCompleted(timedOut bool, duration time.Duration) {
	label := "false"
	if timedOut {
		label = "true"
	}
	m.drainDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
