// Package paths centralizes filesystem locations used by forge.
//
// Cache locations follow the XDG base directory specification so that
// dependency layers survive across runs and are shared between projects
// built by the same user.
package paths
