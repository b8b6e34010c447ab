package probes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lightbench/meter-sentinel/api/types"
	"github.com/lightbench/meter-sentinel/pkg/scpi"
	"github.com/sirupsen/logrus"
)

// InstrumentProbe checks the control channel by asking the instrument to
// identify itself. The query is read-only; a wedged control channel shows up
// here even when the network and service layers are fine.
type InstrumentProbe struct {
	Client  *scpi.Client
	Timeout time.Duration
}

func NewInstrumentProbe(c *scpi.Client, timeout time.Duration) *InstrumentProbe {
	return &InstrumentProbe{Client: c, Timeout: timeout}
}

func (p *InstrumentProbe) Name() string { return ProbeInstrument }

func (p *InstrumentProbe) Check(ctx context.Context) types.ProbeReport {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	idn, err := p.Client.Identify(ctx)
	if err != nil {
		return report(ProbeInstrument, start, fmt.Errorf("%w: %w", ErrControlChannelUnresponsive, err))
	}
	if strings.TrimSpace(idn) == "" {
		return report(ProbeInstrument, start, fmt.Errorf("%w: empty identification response", ErrControlChannelUnresponsive))
	}

	logrus.Debugf("Instrument identified as %q", idn)
	return report(ProbeInstrument, start, nil)
}
