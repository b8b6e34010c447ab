package probes

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/lightbench/meter-sentinel/api/types"
	"github.com/sirupsen/logrus"
)

// ReachabilityProbe checks network-layer liveness with a TCP dial. ICMP needs
// raw sockets, so the probe dials instead; a refused connection still proves
// the host is alive on the network.
type ReachabilityProbe struct {
	Addr    string
	Timeout time.Duration
}

// NewReachabilityProbe probes the given host:port address.
func NewReachabilityProbe(addr string, timeout time.Duration) *ReachabilityProbe {
	return &ReachabilityProbe{Addr: addr, Timeout: timeout}
}

func (p *ReachabilityProbe) Name() string { return ProbeReachability }

func (p *ReachabilityProbe) Check(ctx context.Context) types.ProbeReport {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", p.Addr)
	if err == nil {
		conn.Close()
		return report(ProbeReachability, start, nil)
	}

	// ECONNREFUSED means a host answered with a RST: the network layer is
	// fine even though the port is closed.
	if errors.Is(err, syscall.ECONNREFUSED) {
		logrus.Debugf("Reachability probe to %s refused; host is up", p.Addr)
		return report(ProbeReachability, start, nil)
	}

	return report(ProbeReachability, start, fmt.Errorf("%w: %w", ErrUnreachable, err))
}
