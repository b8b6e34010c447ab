package types

import "time"

// MonitorPhase is the state of the monitor loop's state machine.
type MonitorPhase string

const (
	PhasePolling    MonitorPhase = "POLLING"
	PhaseRecovering MonitorPhase = "RECOVERING"
	PhaseStopped    MonitorPhase = "STOPPED"
)

// MonitorEvent is emitted once per poll tick, and additionally when a
// recovery session completes. Recovery is nil for plain polling ticks.
type MonitorEvent struct {
	Tick                int             `json:"tick"`
	Timestamp           time.Time       `json:"timestamp"`
	Phase               MonitorPhase    `json:"phase"`
	State               HealthState     `json:"state"`
	ConsecutiveFailures int             `json:"consecutive_failures"`
	Probes              []ProbeReport   `json:"probes,omitempty"`
	Recovery            *RecoveryReport `json:"recovery,omitempty"`
}

// MonitorStatus is a point-in-time snapshot of the monitor loop, served by
// the status endpoint. It lives only for the duration of the session.
type MonitorStatus struct {
	Phase               MonitorPhase  `json:"phase"`
	LastState           HealthState   `json:"last_state,omitempty"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	Ticks               int           `json:"ticks"`
	Recoveries          int           `json:"recoveries"`
	LastEvent           *MonitorEvent `json:"last_event,omitempty"`
}
