package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/valutlabs/forge/internal/paths"
	"github.com/valutlabs/forge/internal/plan"
)

// Fetches a single package artifact into destDir and verifies it against
// the locked checksum.
//
// Transport errors and server-side failures are transient: the package may
// exist, the fetch just didn't succeed. A 404/410 response or a checksum
// mismatch means the locked package is not retrievable as described, which
// no retry can fix.
func (s *Store) fetch(ctx context.Context, pkg plan.Package, destDir string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pkg.Source, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %s", ErrPackageMissing, pkg.Name, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %s", ErrTransient, pkg.Name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: %s: source returned %s", ErrPackageMissing, pkg.Name, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: %s: source returned %s", ErrTransient, pkg.Name, resp.Status)
	}

	want, err := digest.Parse(pkg.Checksum)
	if err != nil {
		return fmt.Errorf("%w: %s: %s", ErrPackageMissing, pkg.Name, err)
	}

	// The artifact must land directly inside destDir. Verified lock files
	// cannot name anything else, but recipes need not come from one.
	path := filepath.Join(destDir, pkg.Name+"-"+pkg.Version)
	if filepath.Dir(path) != filepath.Clean(destDir) {
		return fmt.Errorf("%w: %s: artifact name escapes the layer", ErrPackageMissing, pkg.Name)
	}

	got, err := writeVerified(path, resp.Body, want.Algorithm())
	if err != nil {
		return fmt.Errorf("%w: %s: %s", ErrTransient, pkg.Name, err)
	}

	if got != want {
		return fmt.Errorf("%w: %s: checksum mismatch, locked %s but fetched %s", ErrPackageMissing, pkg.Name, want, got)
	}

	return nil
}

// Streams r to a file at path while computing its digest.
func writeVerified(path string, r io.Reader, alg digest.Algorithm) (digest.Digest, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, paths.DefaultFileMode)
	if err != nil {
		return "", err
	}
	defer f.Close()

	digester := alg.Digester()
	if _, err := io.Copy(io.MultiWriter(f, digester.Hash()), r); err != nil {
		return "", err
	}

	return digester.Digest(), nil
}
