package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// PDUClient talks to the out-of-band power distribution unit that feeds the
// instrument. It remains reachable even when the instrument itself is wedged,
// which is the whole point of the power-cycle recovery level.
type PDUClient struct {
	PowerURL string
	options  *Options
}

// NewPDUClient creates a new PDUClient instance.
func NewPDUClient(powerURL string, opts ...Option) (*PDUClient, error) {
	if powerURL == "" {
		return nil, fmt.Errorf("client: PDU power URL is empty")
	}
	options, err := NewOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create options: %w", err)
	}
	return &PDUClient{
		PowerURL: powerURL,
		options:  options,
	}, nil
}

// PowerCycle asks the PDU to cycle the instrument's outlet. The command only
// confirms the PDU accepted it; the device needs tens of seconds to reboot
// before it answers probes again.
func (c *PDUClient) PowerCycle(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.PowerURL, nil)
	if err != nil {
		return fmt.Errorf("error creating POST request: %w", err)
	}
	if c.options.Username != "" {
		req.SetBasicAuth(c.options.Username, c.options.Password)
	}

	resp, err := c.options.HttpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending power-cycle command: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("power-cycle command returned HTTP %d", resp.StatusCode)
	}
	return nil
}
