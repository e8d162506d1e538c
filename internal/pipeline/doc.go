// Package pipeline sequences the build stages of a release.
//
// A run executes the stages strictly in order: plan the dependency recipe,
// build (or reuse) the dependency layer, compile and strip the binary,
// assemble the runtime image, and optionally publish it. Each stage is a
// pure transformation consuming the previous stage's completed output; no
// stage starts before its input is fully materialized, and artifacts are
// passed explicitly between stages rather than through shared directories.
//
// The first error aborts the run. Cancellation is honored at every stage
// boundary, and an aborted run can never reach the publish stage, so a
// partially built image is never published.
package pipeline
