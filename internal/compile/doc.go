// Package compile turns an application source tree into a stripped binary.
//
// Compilation runs the toolchain command declared in the project manifest
// against the source tree, with the committed dependency layer and the
// selected linking mode exported through the environment. The resulting
// binary is copied into the artifact directory and stripped of symbol and
// debug information. Stripping is mandatory and one-way; the pipeline keeps
// no unstripped copy.
//
// Compile failures are deterministic given fixed inputs, so they are never
// retried. The toolchain's stderr is carried in the returned error.
package compile
