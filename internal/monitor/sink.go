package monitor

import (
	"github.com/sirupsen/logrus"

	"github.com/lightbench/meter-sentinel/api/types"
)

// Sink receives one structured event per poll tick and per completed
// recovery. The monitor owns no presentation layer of its own.
type Sink interface {
	Emit(ev types.MonitorEvent)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(ev types.MonitorEvent)

func (f SinkFunc) Emit(ev types.MonitorEvent) { f(ev) }

// LogSink writes events to the process log.
type LogSink struct{}

func (LogSink) Emit(ev types.MonitorEvent) {
	entry := logrus.WithFields(logrus.Fields{
		"tick":     ev.Tick,
		"state":    ev.State,
		"failures": ev.ConsecutiveFailures,
	})

	if ev.Recovery != nil {
		if ev.Recovery.Succeeded {
			entry.Infof("Recovery session %s succeeded after %d level(s)",
				ev.Recovery.SessionID, len(ev.Recovery.Outcomes))
		} else if ev.Recovery.Canceled {
			entry.Warnf("Recovery session %s canceled", ev.Recovery.SessionID)
		} else {
			entry.Errorf("Recovery session %s failed; manual intervention required: %v",
				ev.Recovery.SessionID, ev.Recovery.ManualSteps)
		}
		return
	}

	switch ev.State {
	case types.StateHealthy:
		entry.Info("Instrument healthy")
	default:
		entry.Warnf("Instrument %s", ev.State)
	}
}

// multiSink fans one event out to several sinks.
type multiSink []Sink

func (m multiSink) Emit(ev types.MonitorEvent) {
	for _, s := range m {
		s.Emit(ev)
	}
}

// MultiSink combines sinks into one. Nil sinks are dropped.
func MultiSink(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
