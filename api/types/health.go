package types

import "time"

// HealthState is the overall health of the instrument, derived from the
// individual probe reports on every assessment. It is never persisted.
type HealthState string

const (
	// StateHealthy means every probe passed.
	StateHealthy HealthState = "HEALTHY"
	// StateDegraded means the instrument is reachable but the service layer
	// or the control channel is not answering.
	StateDegraded HealthState = "DEGRADED"
	// StateOffline means the instrument is unreachable at the network layer.
	StateOffline HealthState = "OFFLINE"
)

// Healthy reports whether the state is fully healthy.
func (s HealthState) Healthy() bool {
	return s == StateHealthy
}

// ProbeReport is the outcome of a single health probe. A probe failure is a
// value here, never a raised error.
type ProbeReport struct {
	Probe     string  `json:"probe"`
	Success   bool    `json:"success"`
	LatencyMS float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

// HealthReport is the result of one full assessment: the derived state plus
// the per-probe detail that produced it.
type HealthReport struct {
	State     HealthState   `json:"state"`
	Probes    []ProbeReport `json:"probes"`
	CheckedAt time.Time     `json:"checked_at"`
}

// Healthy reports whether the assessment concluded the instrument is healthy.
func (r HealthReport) Healthy() bool {
	return r.State.Healthy()
}
