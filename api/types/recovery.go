package types

import "time"

// RecoveryOutcome records one attempted level of the recovery ladder.
// Exactly one outcome is produced per attempted level.
type RecoveryOutcome struct {
	Level       int      `json:"level"`
	Name        string   `json:"name"`
	Succeeded   bool     `json:"succeeded"`
	Canceled    bool     `json:"canceled,omitempty"`
	DurationMS  float64  `json:"duration_ms"`
	Error       string   `json:"error,omitempty"`
	ManualSteps []string `json:"manual_steps,omitempty"`
}

// RecoveryReport is the full result of one recovery session: the outcome of
// every attempted level plus the final verdict.
type RecoveryReport struct {
	SessionID   string            `json:"session_id"`
	Succeeded   bool              `json:"succeeded"`
	Canceled    bool              `json:"canceled,omitempty"`
	FinalState  HealthState       `json:"final_state"`
	Outcomes    []RecoveryOutcome `json:"outcomes"`
	ManualSteps []string          `json:"manual_steps,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
}
