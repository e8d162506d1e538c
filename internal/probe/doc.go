// Package probe implements the liveness model for a running service.
//
// Health is a small state machine, not an exception path: a monitor
// periodically issues HTTP GET probes against the service's health
// endpoint and tracks one of three states. A process starts in the
// starting state, during which probes are suppressed for a grace period.
// The first successful probe moves it to healthy. A configured number of
// consecutive failures moves it to unhealthy, and a later success moves
// it back to healthy. No state is terminal; the machine runs for the
// lifetime of the process and only its reported state changes.
//
// The monitor shares no state with the build pipeline. It observes the
// service purely through its HTTP endpoint.
package probe
