package release

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/distribution/reference"

	"github.com/valutlabs/forge/internal/assemble"
	"github.com/valutlabs/forge/internal/paths"
)

// A published release.
type Release struct {
	Tag  string // Normalized image tag (e.g., "docker.io/library/valut:0.0.1").
	Path string // Path of the exported archive.
}

// Tags the image and exports it to <dir>/<service>-<version>.tar.
//
// The version string is supplied by the caller and used verbatim. The tag
// must be a valid image reference; a malformed service name or version is
// an export error. The archive is written to a temporary file first and
// renamed over any existing archive for the same version, so a prior
// release stays intact until the new one is complete.
func Publish(ctx context.Context, img *assemble.Image, service, version, dir string) (*Release, error) {
	tag, err := makeTag(service, version)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrExport, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%s.tar", service, version))

	slog.Info("publishing release", "tag", tag, "path", path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrExport, err)
	}
	defer os.Remove(tmp.Name())

	if err := img.Store.ExportArchive(ctx, tmp, img.Target, tag, img.Platform); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("%w: %s", ErrExport, err)
	}

	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrExport, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrExport, err)
	}

	slog.Info("release published", "tag", tag, "path", path)

	return &Release{Tag: tag, Path: path}, nil
}

// Builds and validates the normalized image tag for a release.
func makeTag(service, version string) (string, error) {
	if service == "" || version == "" {
		return "", fmt.Errorf("%w: service and version are required", ErrExport)
	}

	named, err := reference.ParseNormalizedNamed(service + ":" + version)
	if err != nil {
		return "", fmt.Errorf("%w: malformed tag %s:%s: %s", ErrExport, service, version, err)
	}

	return named.String(), nil
}
