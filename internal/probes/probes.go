// Package probes implements the three independent health probes for the
// instrument: network reachability, service-layer response, and a control
// channel query. Every probe bounds its own wait and reports failure as a
// value; nothing here raises past the probe boundary.
package probes

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"github.com/lightbench/meter-sentinel/api/types"
)

// Probe names, also used by the aggregator to apply its priority rule.
const (
	ProbeReachability = "reachability"
	ProbeService      = "service"
	ProbeInstrument   = "instrument"
)

var (
	// ErrUnreachable means the instrument did not answer at the network layer.
	ErrUnreachable = errors.New("instrument unreachable")
	// ErrServiceUnresponsive means the network is up but the web service is
	// not answering correctly.
	ErrServiceUnresponsive = errors.New("instrument service unresponsive")
	// ErrControlChannelUnresponsive means the SCPI control channel did not
	// answer an identification query.
	ErrControlChannelUnresponsive = errors.New("instrument control channel unresponsive")
)

// Probe is a single bounded, read-only health check.
type Probe interface {
	// Name returns the probe's name.
	Name() string

	// Check runs the probe. It returns within the probe's own timeout and
	// never returns an error: failures are recorded on the report.
	Check(ctx context.Context) types.ProbeReport
}

// report builds a ProbeReport from a probe run. A deadline expiry is reported
// as a timeout, not propagated as a fault.
func report(name string, start time.Time, err error) types.ProbeReport {
	r := types.ProbeReport{
		Probe:     name,
		Success:   err == nil,
		LatencyMS: float64(time.Since(start)) / float64(time.Millisecond),
	}
	if err != nil {
		if isTimeout(err) {
			r.Error = name + " probe timed out: " + err.Error()
		} else {
			r.Error = err.Error()
		}
	}
	return r
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
