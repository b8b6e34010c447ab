package monitor

import (
	"sync"

	"github.com/lightbench/meter-sentinel/api/types"
)

// statusTracker holds the monitor session's observable state: current phase,
// counters, the last event, and a bounded ring of recent events. It lives
// only as long as the session; nothing is persisted.
type statusTracker struct {
	mu sync.RWMutex

	phase      types.MonitorPhase
	lastState  types.HealthState
	failures   int
	ticks      int
	recoveries int

	events    []types.MonitorEvent
	eventsCap int
}

func newStatusTracker(eventsCap int) *statusTracker {
	if eventsCap < 1 {
		eventsCap = 1
	}
	return &statusTracker{
		phase:     types.PhaseStopped,
		eventsCap: eventsCap,
	}
}

func (t *statusTracker) setPhase(p types.MonitorPhase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phase = p
}

func (t *statusTracker) record(ev types.MonitorEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastState = ev.State
	t.failures = ev.ConsecutiveFailures
	if ev.Recovery != nil {
		t.recoveries++
	} else {
		t.ticks++
	}

	t.events = append(t.events, ev)
	if len(t.events) > t.eventsCap {
		t.events = t.events[len(t.events)-t.eventsCap:]
	}
}

// Snapshot returns a copy of the current status.
func (t *statusTracker) Snapshot() types.MonitorStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	status := types.MonitorStatus{
		Phase:               t.phase,
		LastState:           t.lastState,
		ConsecutiveFailures: t.failures,
		Ticks:               t.ticks,
		Recoveries:          t.recoveries,
	}
	if n := len(t.events); n > 0 {
		last := t.events[n-1]
		status.LastEvent = &last
	}
	return status
}

// Events returns a copy of the recent-event ring, oldest first.
func (t *statusTracker) Events() []types.MonitorEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]types.MonitorEvent, len(t.events))
	copy(out, t.events)
	return out
}
