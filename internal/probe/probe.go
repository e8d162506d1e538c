package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Default probe parameters.
const (
	DefaultInterval  = 30 * time.Second
	DefaultTimeout   = 3 * time.Second
	DefaultGrace     = 5 * time.Second
	DefaultThreshold = 3
)

// Probe parameters for a monitored service.
type Config struct {
	URL       string        // Health endpoint, e.g. "http://localhost:8000/health".
	Interval  time.Duration // Time between probes.
	Timeout   time.Duration // Per-probe timeout.
	Grace     time.Duration // Startup window during which probes are suppressed.
	Threshold int           // Consecutive failures before the service is unhealthy.
}

// Returns a copy with zero fields replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Grace <= 0 {
		c.Grace = DefaultGrace
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	return c
}

// Performs a single liveness check.
type Checker interface {
	Check(ctx context.Context) error
}

// Probes an HTTP health endpoint.
//
// Any response with a non-error status counts as success. Transport
// errors, timeouts, and error statuses count as one failure each.
type HTTPChecker struct {
	Client *http.Client // Client used for probes. Nil uses the default client.
	URL    string       // Endpoint to probe.
}

// Issues one GET against the endpoint.
func (h *HTTPChecker) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return err
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("health endpoint returned %s", resp.Status)
	}

	return nil
}
