// Package scpi implements a minimal SCPI-over-TCP client for laboratory
// instruments exposing a raw socket control channel (the VISA-style
// request/response transport, conventionally on port 5025).
package scpi

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// Client talks SCPI to a single instrument. A fresh connection is opened per
// operation so no lock on the control channel is held between calls.
type Client struct {
	Addr    string
	options *Options
}

// NewClient creates a new Client for the given host:port address.
func NewClient(addr string, opts ...Option) (*Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("scpi: address is empty")
	}
	o, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &Client{Addr: addr, options: o}, nil
}

// Query sends a command terminated by a newline and reads a single response
// line. The whole exchange is bounded by the client timeout and the context.
func (c *Client) Query(ctx context.Context, cmd string) (string, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if err := send(conn, cmd); err != nil {
		return "", fmt.Errorf("scpi: sending %q: %w", cmd, err)
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("scpi: reading response to %q: %w", cmd, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Write sends one or more commands that produce no response, in order, over
// a single connection.
func (c *Client) Write(ctx context.Context, cmds ...string) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, cmd := range cmds {
		if err := send(conn, cmd); err != nil {
			return fmt.Errorf("scpi: sending %q: %w", cmd, err)
		}
	}
	return nil
}

// Identify issues "*IDN?" and returns the instrument identification string.
func (c *Client) Identify(ctx context.Context) (string, error) {
	return c.Query(ctx, "*IDN?")
}

// Reset issues the standard reset and clear-status commands.
func (c *Client) Reset(ctx context.Context) error {
	return c.Write(ctx, "*RST", "*CLS")
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: c.options.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return nil, fmt.Errorf("scpi: connecting to %s: %w", c.Addr, err)
	}

	// The connection deadline bounds the whole exchange; an earlier context
	// deadline wins.
	deadline := time.Now().Add(c.options.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func send(conn net.Conn, cmd string) error {
	_, err := fmt.Fprintf(conn, "%s\n", cmd)
	return err
}
