package probe

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Reported health of a monitored service.
type State string

const (

	// From process launch until the grace period elapses. Probe results
	// do not affect the health state in this window.
	StateStarting State = "starting"

	// The steady good state, reached on any successful probe.
	StateHealthy State = "healthy"

	// Reached after the configured number of consecutive failures.
	// Recoverable: the next success returns the service to healthy.
	StateUnhealthy State = "unhealthy"
)

// Drives periodic liveness probes and tracks the resulting health state.
type Monitor struct {
	cfg     Config
	checker Checker

	mu       sync.Mutex
	state    State
	failures int
}

// Creates a monitor for the given checker.
//
// Zero config fields take their defaults. The monitor starts in the
// starting state and does nothing until [Monitor.Run] is called.
func NewMonitor(cfg Config, checker Checker) *Monitor {
	return &Monitor{
		cfg:     cfg.WithDefaults(),
		checker: checker,
		state:   StateStarting,
	}
}

// Returns the current health state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Runs the probe loop until the context is cancelled.
//
// Probes are suppressed during the grace period, then issued once per
// interval with the per-probe timeout applied to each. The loop never
// terminates on its own: health is a lifetime property of the process,
// not a one-shot check.
func (m *Monitor) Run(ctx context.Context) {
	slog.Info("health monitor started",
		"url", m.cfg.URL,
		"interval", m.cfg.Interval,
		"grace", m.cfg.Grace,
		"threshold", m.cfg.Threshold,
	)

	grace := time.NewTimer(m.cfg.Grace)
	defer grace.Stop()

	select {
	case <-ctx.Done():
		return
	case <-grace.C:
	}

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

// Issues one probe and applies its result to the state machine.
func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	if err := m.checker.Check(probeCtx); err != nil {
		m.recordFailure(err)
		return
	}
	m.recordSuccess()
}

// Applies a successful probe: any success makes the service healthy and
// resets the failure streak.
func (m *Monitor) recordSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures = 0
	m.transition(StateHealthy)
}

// Applies a failed probe: the service becomes unhealthy once the streak
// of consecutive failures reaches the threshold.
func (m *Monitor) recordFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures++
	slog.Debug("probe failed", "failures", m.failures, "error", err)

	if m.failures >= m.cfg.Threshold {
		m.transition(StateUnhealthy)
	}
}

// Changes state, logging the transition. Callers hold the lock.
func (m *Monitor) transition(to State) {
	if m.state == to {
		return
	}
	slog.Info("health state changed", "from", m.state, "to", to)
	m.state = to
}
