// Package client provides HTTP clients for the instrument's service layer
// and for the out-of-band management channel used to power-cycle it.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// ServiceClient talks to the instrument's embedded web service.
type ServiceClient struct {
	StatusURL string
	ResetURL  string
	options   *Options
}

// NewServiceClient creates a new ServiceClient instance.
func NewServiceClient(statusURL, resetURL string, opts ...Option) (*ServiceClient, error) {
	if statusURL == "" {
		return nil, fmt.Errorf("client: status URL is empty")
	}
	options, err := NewOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create options: %w", err)
	}
	return &ServiceClient{
		StatusURL: statusURL,
		ResetURL:  resetURL,
		options:   options,
	}, nil
}

// CheckStatus fetches the status page and reports whether the service layer
// answered correctly. Any non-2xx response is a failure.
func (c *ServiceClient) CheckStatus(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.StatusURL, nil)
	if err != nil {
		return fmt.Errorf("error creating GET request: %w", err)
	}

	resp, err := c.options.HttpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error fetching status page: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status page returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// Reset issues the service-layer reset command. Used when the control channel
// is unresponsive but the web service still accepts commands.
func (c *ServiceClient) Reset(ctx context.Context) error {
	if c.ResetURL == "" {
		return fmt.Errorf("client: no reset URL configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ResetURL, nil)
	if err != nil {
		return fmt.Errorf("error creating POST request: %w", err)
	}

	resp, err := c.options.HttpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending reset command: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("reset command returned HTTP %d", resp.StatusCode)
	}
	return nil
}
