package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	appName = "forge"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Path to the root cache directory.
//
//	Linux:   ~/.cache/forge
//	macOS:   ~/Library/Caches/forge
func CacheHome() string {
	return filepath.Join(xdg.CacheHome, appName)
}

// Path to the dependency layer store.
//
// Layers are keyed by recipe digest and shared across builds of the same
// project. See the cache package for the layout inside this directory.
func LayerRoot() string {
	return filepath.Join(CacheHome(), "layers")
}

// Path to the scratch directory for a build run rooted at dir.
//
// Holds the OCI content store and intermediate artifacts for a single run.
// Safe to delete between runs.
func WorkDir(dir string) string {
	return filepath.Join(dir, ".forge")
}
