package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/opencontainers/go-digest"
)

// Lock file format version understood by this build.
const LockFormatVersion = 1

// The resolved dependency graph of a project.
//
// Packages include both the manifest's direct dependencies and every
// transitive dependency they pull in.
type Lock struct {
	Version  int           `json:"version"`
	Packages []LockPackage `json:"packages"`
}

// A single resolved package.
type LockPackage struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Source       string   `json:"source"`
	Checksum     string   `json:"checksum"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Parses the lock file at the given path.
func LoadLock(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrParse, err)
	}

	var l Lock
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%w: lock file: %s", ErrParse, err)
	}

	if l.Version != LockFormatVersion {
		return nil, fmt.Errorf("%w: unsupported lock format version %d", ErrParse, l.Version)
	}

	return &l, nil
}

// Checks the manifest and lock against each other.
//
// Rules:
//   - every manifest dependency must appear in the lock, at the pinned version
//   - every lock package must be a manifest dependency or reachable from one
//     through the lock's dependency edges
//   - dependency edges must reference packages present in the lock
//   - every checksum must be a well-formed digest
//   - names and versions must be usable as single path components, since
//     they name artifact files inside the dependency layer
//
// Any violation is fatal; the caller must not use either file afterwards.
func Verify(m *Manifest, l *Lock) error {
	locked := make(map[string]LockPackage, len(l.Packages))
	for _, pkg := range l.Packages {
		if pkg.Name == "" {
			return fmt.Errorf("%w: lock contains a package with no name", ErrParse)
		}
		if !safeComponent(pkg.Name) {
			return fmt.Errorf("%w: locked package name %q is not a valid path component", ErrParse, pkg.Name)
		}
		if pkg.Version == "" {
			return fmt.Errorf("%w: locked package %q has no version", ErrParse, pkg.Name)
		}
		if !safeComponent(pkg.Version) {
			return fmt.Errorf("%w: locked package %q has a malformed version %q", ErrParse, pkg.Name, pkg.Version)
		}
		if _, ok := locked[pkg.Name]; ok {
			return fmt.Errorf("%w: lock contains duplicate package %q", ErrParse, pkg.Name)
		}
		if pkg.Source == "" {
			return fmt.Errorf("%w: locked package %q has no source", ErrParse, pkg.Name)
		}
		if _, err := digest.Parse(pkg.Checksum); err != nil {
			return fmt.Errorf("%w: locked package %q has a malformed checksum: %s", ErrParse, pkg.Name, err)
		}
		locked[pkg.Name] = pkg
	}

	for _, pkg := range l.Packages {
		for _, dep := range pkg.Dependencies {
			if _, ok := locked[dep]; !ok {
				return fmt.Errorf("%w: locked package %q depends on %q, which is not in the lock", ErrParse, pkg.Name, dep)
			}
		}
	}

	reachable := make(map[string]bool, len(locked))
	for _, dep := range m.Dependencies {
		pkg, ok := locked[dep.Name]
		if !ok {
			return fmt.Errorf("%w: dependency %q is not in the lock", ErrParse, dep.Name)
		}
		if pkg.Version != dep.Version {
			return fmt.Errorf("%w: dependency %q is pinned to %s but locked at %s", ErrParse, dep.Name, dep.Version, pkg.Version)
		}
		markReachable(locked, reachable, dep.Name)
	}

	for name := range locked {
		if !reachable[name] {
			return fmt.Errorf("%w: locked package %q is not required by the manifest", ErrParse, name)
		}
	}

	return nil
}

// Whether s is safe to embed in a filename as a single path component.
func safeComponent(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

// Marks name and everything reachable from it through lock dependency edges.
func markReachable(locked map[string]LockPackage, reachable map[string]bool, name string) {
	if reachable[name] {
		return
	}
	reachable[name] = true
	for _, dep := range locked[name].Dependencies {
		markReachable(locked, reachable, dep)
	}
}
