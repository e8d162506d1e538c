package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/valutlabs/forge/internal/paths"
	"github.com/valutlabs/forge/internal/plan"
)

// Name of the serialized recipe inside a committed layer.
const recipeFilename = "recipe.json"

// Subdirectory of a layer holding fetched package artifacts.
const packagesDir = "pkgs"

// A filesystem store of dependency layers keyed by recipe digest.
type Store struct {
	root   string       // Root directory of the store.
	client *http.Client // Client used to fetch package artifacts.
}

// A committed dependency layer.
type Layer struct {
	Digest digest.Digest // Recipe digest the layer was built from.
	Dir    string        // Directory holding the layer contents.
}

// Opens the store at the default per-user cache location.
func Open() *Store {
	return NewStore(paths.LayerRoot())
}

// Creates a store rooted at the given directory.
func NewStore(root string) *Store {
	return &Store{
		root:   root,
		client: http.DefaultClient,
	}
}

// Replaces the HTTP client used for package fetches.
func (s *Store) SetClient(client *http.Client) {
	s.client = client
}

// Returns the committed layer for the given digest, if one exists.
func (s *Store) Lookup(d digest.Digest) (*Layer, bool) {
	dir := s.layerDir(d)
	if _, err := os.Stat(filepath.Join(dir, recipeFilename)); err != nil {
		return nil, false
	}
	return &Layer{Digest: d, Dir: dir}, true
}

// Builds the dependency layer for a recipe, reusing a committed layer when
// one exists for the recipe's digest.
//
// A fresh build fetches every package into a scratch directory, verifies
// each against its locked checksum, and commits the result with a single
// rename. The first fetch failure aborts the build; nothing is committed.
func (s *Store) Build(ctx context.Context, r *plan.Recipe) (*Layer, error) {
	d, err := r.Digest()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFetch, err)
	}

	if layer, ok := s.Lookup(d); ok {
		slog.Info("dependency layer up to date", "digest", d, "packages", len(r.Packages))
		return layer, nil
	}

	slog.Info("building dependency layer", "digest", d, "packages", len(r.Packages))

	scratch, err := s.scratchDir(d)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)

	for _, pkg := range r.Packages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrTransient, err)
		}
		if err := s.fetch(ctx, pkg, filepath.Join(scratch, packagesDir)); err != nil {
			return nil, err
		}
	}

	if err := s.commit(r, scratch, d); err != nil {
		return nil, err
	}

	return &Layer{Digest: d, Dir: s.layerDir(d)}, nil
}

// Serializes the recipe into the scratch directory and renames it into
// place. The rename is the commit point; a layer directory either holds a
// complete build or does not exist.
func (s *Store) commit(r *plan.Recipe, scratch string, d digest.Digest) error {
	data, err := r.Encode()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrFetch, err)
	}
	if err := os.WriteFile(filepath.Join(scratch, recipeFilename), data, paths.DefaultFileMode); err != nil {
		return fmt.Errorf("%w: %s", ErrFetch, err)
	}

	dir := s.layerDir(d)
	if err := os.MkdirAll(filepath.Dir(dir), paths.DefaultDirMode); err != nil {
		return fmt.Errorf("%w: %s", ErrFetch, err)
	}

	// Discard remnants of an interrupted earlier build.
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w: %s", ErrFetch, err)
	}

	if err := os.Rename(scratch, dir); err != nil {
		return fmt.Errorf("%w: %s", ErrFetch, err)
	}

	slog.Debug("dependency layer committed", "dir", dir)
	return nil
}

// Creates the scratch directory for an in-progress layer build.
func (s *Store) scratchDir(d digest.Digest) (string, error) {
	if err := os.MkdirAll(s.root, paths.DefaultDirMode); err != nil {
		return "", fmt.Errorf("%w: %s", ErrFetch, err)
	}
	scratch, err := os.MkdirTemp(s.root, "build-"+d.Encoded()[:12]+"-*")
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrFetch, err)
	}
	if err := os.MkdirAll(filepath.Join(scratch, packagesDir), paths.DefaultDirMode); err != nil {
		return "", fmt.Errorf("%w: %s", ErrFetch, err)
	}
	return scratch, nil
}

// Returns the committed directory for a recipe digest.
func (s *Store) layerDir(d digest.Digest) string {
	return filepath.Join(s.root, string(d.Algorithm()), d.Encoded())
}

// Lists the package artifacts held by a layer, sorted by filename.
func (l *Layer) Packages() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(l.Dir, packagesDir))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
