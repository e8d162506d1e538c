// Package cli implements the forge command line interface.
//
// The root command carries global logging flags and dispatches to the
// subcommands: plan, build, release, probe, and version. Argument parsing
// is handled by kong; the parsed context carries a signal-aware
// context.Context into each subcommand's Run method.
package cli
