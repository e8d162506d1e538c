// Package manifest loads and validates the project's build description.
//
// A project is described by two files. The manifest (forge.hcl) declares
// the service identity, the toolchain used to compile it, and the direct
// dependencies with their pinned versions. The lock file (forge.lock, JSON)
// pins the full resolved dependency graph: every package, its exact version,
// the URL it is fetched from, and its content checksum.
//
// The two files together are the single source of truth for the dependency
// graph. Verify checks them against each other: every manifest dependency
// must be present in the lock, every lock package must be reachable from a
// manifest dependency, and all checksums must be well-formed. Any violation
// is a parse error; no partial result is ever returned.
package manifest
