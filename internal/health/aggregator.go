// Package health combines the independent instrument probes into a single
// health state.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lightbench/meter-sentinel/api/types"
	"github.com/lightbench/meter-sentinel/internal/config"
	"github.com/lightbench/meter-sentinel/internal/probes"
	"github.com/lightbench/meter-sentinel/pkg/client"
	"github.com/lightbench/meter-sentinel/pkg/scpi"
)

// Aggregator runs the three probes and derives the overall state:
// OFFLINE iff reachability fails, otherwise DEGRADED if the service or
// control channel fails, otherwise HEALTHY. A single assessment never
// retries a probe; repeated assessment belongs to the monitor loop.
type Aggregator struct {
	reachability probes.Probe
	service      probes.Probe
	instrument   probes.Probe
}

// NewAggregator creates an Aggregator over the given probes.
func NewAggregator(reachability, service, instrument probes.Probe) *Aggregator {
	return &Aggregator{
		reachability: reachability,
		service:      service,
		instrument:   instrument,
	}
}

// NewFromConfig wires the real probes from the configuration.
func NewFromConfig(cfg config.Configuration) (*Aggregator, error) {
	ic := cfg.GetInstrumentConfig()
	if ic.Addr == "" {
		return nil, fmt.Errorf("health: instrument address is not configured")
	}

	serviceClient, err := client.NewServiceClient(ic.StatusURL, ic.ResetURL,
		client.Timeout(ic.ServiceTimeout))
	if err != nil {
		return nil, fmt.Errorf("health: creating service client: %w", err)
	}

	scpiClient, err := scpi.NewClient(ic.SCPIAddr, scpi.Timeout(ic.SCPITimeout))
	if err != nil {
		return nil, fmt.Errorf("health: creating control channel client: %w", err)
	}

	return NewAggregator(
		probes.NewReachabilityProbe(ic.SCPIAddr, ic.ReachabilityTimeout),
		probes.NewServiceProbe(serviceClient, ic.ServiceTimeout),
		probes.NewInstrumentProbe(scpiClient, ic.SCPITimeout),
	), nil
}

// Assess runs all probes concurrently, waits for the slowest one (each probe
// bounds its own wait) and derives the overall state.
func (a *Aggregator) Assess(ctx context.Context) types.HealthReport {
	all := []probes.Probe{a.reachability, a.service, a.instrument}
	reports := make([]types.ProbeReport, len(all))

	var wg sync.WaitGroup
	for i, p := range all {
		wg.Add(1)
		go func(i int, p probes.Probe) {
			defer wg.Done()
			reports[i] = p.Check(ctx)
		}(i, p)
	}
	wg.Wait()

	state := derive(reports[0], reports[1], reports[2])
	logrus.Debugf("Health assessment: %s (reachability=%v service=%v instrument=%v)",
		state, reports[0].Success, reports[1].Success, reports[2].Success)

	return types.HealthReport{
		State:     state,
		Probes:    reports,
		CheckedAt: time.Now(),
	}
}

func derive(reachability, service, instrument types.ProbeReport) types.HealthState {
	if !reachability.Success {
		return types.StateOffline
	}
	if !service.Success || !instrument.Success {
		return types.StateDegraded
	}
	return types.StateHealthy
}
