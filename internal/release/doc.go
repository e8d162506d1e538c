// Package release tags and exports assembled runtime images.
//
// A release is a single self-contained archive, <service>-<version>.tar,
// that reconstructs the tagged image on any compatible host without a
// registry. The archive name is derived deterministically from the service
// name and the supplied version string; the version is never inferred or
// bumped. Publishing the same version again overwrites the prior archive.
//
// Archives are staged in a temporary file and renamed into place, so a
// failed export never disturbs a previously published archive.
package release
