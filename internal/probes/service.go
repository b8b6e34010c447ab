package probes

import (
	"context"
	"fmt"
	"time"

	"github.com/lightbench/meter-sentinel/api/types"
	"github.com/lightbench/meter-sentinel/pkg/client"
)

// ServiceProbe checks that the instrument's embedded web service answers
// its status page correctly.
type ServiceProbe struct {
	Client  *client.ServiceClient
	Timeout time.Duration
}

func NewServiceProbe(c *client.ServiceClient, timeout time.Duration) *ServiceProbe {
	return &ServiceProbe{Client: c, Timeout: timeout}
}

func (p *ServiceProbe) Name() string { return ProbeService }

func (p *ServiceProbe) Check(ctx context.Context) types.ProbeReport {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	if err := p.Client.CheckStatus(ctx); err != nil {
		return report(ProbeService, start, fmt.Errorf("%w: %w", ErrServiceUnresponsive, err))
	}
	return report(ProbeService, start, nil)
}
