package cli

import (
	"context"
	"time"

	"github.com/valutlabs/forge/internal/probe"
)

// Represents the 'forge probe' command.
//
// Runs the liveness state machine against a service's health endpoint,
// logging every state transition, until interrupted. Useful for verifying
// the probe contract of a freshly built image from the outside.
type ProbeCmd struct {
	URL       string        `arg:"" default:"http://localhost:8000/health" help:"Health endpoint to monitor."`
	Interval  time.Duration `default:"30s" help:"Time between probes."`
	Timeout   time.Duration `default:"3s" help:"Per-probe timeout."`
	Grace     time.Duration `default:"5s" help:"Startup grace period."`
	Threshold int           `default:"3" help:"Consecutive failures before unhealthy."`
}

// Executes the probe command.
func (c *ProbeCmd) Run(ctx context.Context) error {
	monitor := probe.NewMonitor(probe.Config{
		URL:       c.URL,
		Interval:  c.Interval,
		Timeout:   c.Timeout,
		Grace:     c.Grace,
		Threshold: c.Threshold,
	}, &probe.HTTPChecker{URL: c.URL})

	monitor.Run(ctx)
	return nil
}
