package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sierrasoftworks/humane-errors-go"
)

const (
	StatusPath  = "/status"
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"

	DefaultAddr = "localhost:9666"
)

// Client reads the published state of an agent over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the agent listening on addr ("host:port" or a URL).
func NewClient(addr string, timeout time.Duration) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}

	return &Client{
		baseURL: strings.TrimRight(addr, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Status fetches the current StatusResponse.
func (c *Client) Status(ctx context.Context) (*StatusResponse, humane.Error) {
	resp, err := c.get(ctx, StatusPath)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, humane.Wrap(err, "failed to decode agent status",
			"ensure the address points at a pifan-agent and both run the same version",
		)
	}
	return &status, nil
}

// Healthy returns nil if the agent answers its health check.
func (c *Client) Healthy(ctx context.Context) humane.Error {
	resp, err := c.get(ctx, HealthPath)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, humane.Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, humane.Wrap(err, "failed to build request",
			"check the agent address, it must look like host:port or http://host:port",
		)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, humane.Wrap(err, "failed to reach pifan-agent",
			"ensure pifan-agent is running and listening on the address passed with --addr",
		)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, humane.New(fmt.Sprintf("pifan-agent answered %s with %s", path, resp.Status),
			"check the agent logs for details",
		)
	}

	return resp, nil
}
