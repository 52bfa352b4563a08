package lifecycle

import "time"

// Metrics is the narrow set of observability hooks the controller will
// drive if one is attached via WithMetrics. It exists so pkg/lifecycle
// never has to import pkg/observability (and its Prometheus/OTel
// dependencies) directly — the same "narrow consumed interface" shape as
// core.AgentHandle.
type Metrics interface {
	ExecutionRegistered(active int)
	ExecutionUnregistered(active int)
	ExecutionForceCheckpointed()
	DrainCompleted(timedOut bool, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ExecutionRegistered(int)            {}
func (noopMetrics) ExecutionUnregistered(int)          {}
func (noopMetrics) ExecutionForceCheckpointed()        {}
func (noopMetrics) DrainCompleted(bool, time.Duration) {}
