package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/lightbench/meter-sentinel/internal/config"
	"github.com/lightbench/meter-sentinel/pkg/client"
	"github.com/lightbench/meter-sentinel/pkg/scpi"
)

// Action is a single recovery command against the instrument. It must return
// once its context expires.
type Action func(ctx context.Context) error

// Level is one rung of the escalation ladder. Levels run in ascending Rank
// order. A nil Action marks the terminal, manual-intervention level.
type Level struct {
	Rank int
	Name string

	// SuccessRate is informational metadata for operators; it never feeds
	// control decisions.
	SuccessRate string

	Action  Action
	Timeout time.Duration

	// Settle is how long the post-action health poll may wait for the
	// device to come back before the level is declared failed.
	Settle time.Duration

	ManualSteps []string
}

// ManualSteps is the ordered remediation list surfaced to the operator when
// every automatic level has failed.
var ManualSteps = []string{
	"Physically power cycle the instrument",
	"Check network cabling and link lights on the instrument",
	"Restart the network switch or router feeding the instrument",
	"Contact the lab administrator if the instrument stays offline",
}

// DefaultLevels builds the standard four-level ladder from the configuration.
func DefaultLevels(cfg config.Configuration) ([]Level, error) {
	ic := cfg.GetInstrumentConfig()
	rc := cfg.GetRecoveryConfig()
	pc := cfg.GetPDUConfig()

	scpiClient, err := scpi.NewClient(ic.SCPIAddr, scpi.Timeout(rc.SoftResetTimeout))
	if err != nil {
		return nil, fmt.Errorf("recovery: creating control channel client: %w", err)
	}

	serviceClient, err := client.NewServiceClient(ic.StatusURL, ic.ResetURL,
		client.Timeout(rc.ServiceResetTimeout))
	if err != nil {
		return nil, fmt.Errorf("recovery: creating service client: %w", err)
	}

	powerCycle := func(ctx context.Context) error {
		return fmt.Errorf("no out-of-band power endpoint configured")
	}
	if pc.PowerURL != "" {
		pduClient, err := client.NewPDUClient(pc.PowerURL,
			client.Timeout(pc.Timeout),
			client.BasicAuth(pc.Username, pc.Password))
		if err != nil {
			return nil, fmt.Errorf("recovery: creating PDU client: %w", err)
		}
		powerCycle = pduClient.PowerCycle
	}

	return []Level{
		{
			Rank:        1,
			Name:        "soft reset",
			SuccessRate: "~70%",
			Action:      scpiClient.Reset,
			Timeout:     rc.SoftResetTimeout,
			Settle:      rc.SoftResetSettle,
		},
		{
			Rank:        2,
			Name:        "service reset",
			SuccessRate: "~50%",
			Action:      serviceClient.Reset,
			Timeout:     rc.ServiceResetTimeout,
			Settle:      rc.ServiceResetSettle,
		},
		{
			Rank:        3,
			Name:        "power cycle",
			SuccessRate: "~90%",
			Action:      powerCycle,
			Timeout:     rc.PowerCycleTimeout,
			Settle:      rc.PowerCycleSettle,
		},
		{
			Rank:        4,
			Name:        "manual intervention",
			ManualSteps: ManualSteps,
		},
	}, nil
}
