package internal

import (
	"fmt"
	"runtime"
	"strings"
)

// Name of the tool, used for CLI naming and logging.
const Name = "forge"

// String returned when a build variable was not injected.
const defaultLocalBuild = "(local)"

var (
	version   = "" // Release version (e.g., "1.2.3"), set via ldflags.
	gitCommit = "" // Git commit hash, set via ldflags.
)

// Returns the release version with any "v" prefix stripped, or an empty
// string for local builds.
func Version() string {
	v := strings.ToLower(strings.TrimSpace(version))
	return strings.TrimPrefix(v, "v")
}

// Returns true if this binary was built outside the release pipeline.
//
// Pipeline builds inject both the version and the commit hash via linker
// flags; a build missing either is treated as local.
func IsLocal() bool {
	return Version() == "" || strings.TrimSpace(gitCommit) == ""
}

// Returns a detailed version string.
//
// If this is a local build, returns "(local)". Otherwise, returns a string
// formatted as "<version> <git-commit> [<arch>]".
func VersionString() string {
	if IsLocal() {
		return defaultLocalBuild
	}
	return fmt.Sprintf("%s %s [%s]", Version(), strings.TrimSpace(gitCommit), runtime.GOARCH)
}
