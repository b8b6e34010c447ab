// Package monitor runs the unattended polling loop: assess instrument health
// on a fixed cadence, count consecutive failures, and hand off to the
// recovery ladder when the threshold is crossed.
package monitor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lightbench/meter-sentinel/api/types"
	"github.com/lightbench/meter-sentinel/internal/config"
)

// Assessor produces a fresh health report on demand. Satisfied by
// *health.Aggregator.
type Assessor interface {
	Assess(ctx context.Context) types.HealthReport
}

// Recoverer runs one full recovery session. Satisfied by *recovery.Ladder.
type Recoverer interface {
	Run(ctx context.Context) types.RecoveryReport
}

// Monitor is a single-worker polling loop over one instrument. Polling and
// recovering are mutually exclusive so the instrument's control channel is
// never addressed by two in-flight operations.
type Monitor struct {
	health    Assessor
	ladder    Recoverer
	interval  time.Duration
	threshold int
	sink      Sink
	status    *statusTracker

	running atomic.Bool
}

// New creates a Monitor. The sink may be nil; events are then only recorded
// on the status tracker.
func New(health Assessor, ladder Recoverer, cfg config.MonitorConfig, sink Sink) (*Monitor, error) {
	if health == nil || ladder == nil {
		return nil, fmt.Errorf("monitor: assessor and recoverer are required")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("monitor: poll interval must be positive")
	}
	if cfg.FailureThreshold < 1 {
		return nil, fmt.Errorf("monitor: failure threshold must be at least 1")
	}
	if sink == nil {
		sink = SinkFunc(func(types.MonitorEvent) {})
	}
	return &Monitor{
		health:    health,
		ladder:    ladder,
		interval:  cfg.PollInterval,
		threshold: cfg.FailureThreshold,
		sink:      sink,
		status:    newStatusTracker(cfg.EventBuffer),
	}, nil
}

// Run polls until the context is canceled. The first assessment happens
// immediately, then once per interval. The loop never terminates on probe or
// recovery failures; only cancellation stops it.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return fmt.Errorf("monitor: session already running")
	}
	defer m.running.Store(false)

	logrus.Infof("Starting monitor loop (interval %s, failure threshold %d)",
		m.interval, m.threshold)
	m.status.setPhase(types.PhasePolling)
	defer m.status.setPhase(types.PhaseStopped)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	failures := 0
	tick := 0
	for {
		tick++
		report := m.health.Assess(ctx)
		if ctx.Err() != nil {
			return nil
		}

		if report.Healthy() {
			failures = 0
		} else {
			failures++
		}

		m.emit(types.MonitorEvent{
			Tick:                tick,
			Timestamp:           time.Now(),
			Phase:               types.PhasePolling,
			State:               report.State,
			ConsecutiveFailures: failures,
			Probes:              report.Probes,
		})

		if !report.Healthy() && failures >= m.threshold {
			m.status.setPhase(types.PhaseRecovering)
			recovery := m.ladder.Run(ctx)

			// Counter resets regardless of outcome so a failed recovery does
			// not re-trigger on the very next tick.
			failures = 0

			m.emit(types.MonitorEvent{
				Tick:                tick,
				Timestamp:           time.Now(),
				Phase:               types.PhaseRecovering,
				State:               recovery.FinalState,
				ConsecutiveFailures: failures,
				Recovery:            &recovery,
			})
			m.status.setPhase(types.PhasePolling)

			if ctx.Err() != nil {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			logrus.Info("Monitor loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Status returns a snapshot of the current session.
func (m *Monitor) Status() types.MonitorStatus {
	return m.status.Snapshot()
}

// Events returns the recent events recorded by the session, oldest first.
func (m *Monitor) Events() []types.MonitorEvent {
	return m.status.Events()
}

func (m *Monitor) emit(ev types.MonitorEvent) {
	m.status.record(ev)
	m.sink.Emit(ev)
}
