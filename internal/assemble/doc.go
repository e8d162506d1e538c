// Package assemble constructs the minimal runtime image for a service.
//
// The runtime image is the base system image plus exactly one appended
// layer: the stripped service binary, the trusted TLS root certificates,
// and optionally the lightweight HTTP probe client. The image entrypoint
// is the service binary itself, launched directly with no wrapping shell.
//
// Exclusion is by construction, not by minimization: the appended layer is
// built from an explicit file list, so the build toolchain, the source
// tree, and the dependency cache can never leak into the image.
//
// When a liveness probe is configured, its parameters (endpoint, interval,
// timeout, grace period, failure threshold) are embedded as OCI annotations
// on the image manifest so that supervisors can drive the health state
// machine described in the probe package.
package assemble
