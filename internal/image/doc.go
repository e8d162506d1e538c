// Package image provides OCI image plumbing over a local content store.
//
// All blobs handled by the pipeline (base image layers, the appended
// application layer, manifests, configs, and indexes) live in a file-backed
// containerd content store, so images can be assembled and exported without
// a container runtime or registry. Base image archives are ingested with
// ImportArchive, mutated copies of manifests and configs are written as new
// blobs, and the archive exporter serializes a target descriptor back to a
// portable tar.
//
// Multi-platform base archives are supported: ResolveManifest walks an OCI
// index to the manifest matching the target platform, falling back to the
// image config's declared platform for descriptors that lack platform
// metadata.
package image
