package plan

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/valutlabs/forge/internal/manifest"
)

// Recipe encoding format version.
const formatVersion = 1

// A deterministic description of a locked dependency graph.
//
// Packages are sorted by name and each package's dependency list is sorted,
// so the JSON encoding is canonical.
type Recipe struct {
	FormatVersion int       `json:"formatVersion"`
	Packages      []Package `json:"packages"`
}

// A single package in a recipe.
type Package struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Source       string   `json:"source"`
	Checksum     string   `json:"checksum"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Derives a recipe from a manifest and its lock file.
//
// The pair is verified first; an inconsistent pair produces no recipe. The
// recipe's content depends only on the manifest and lock, never on the
// application source tree.
func Build(m *manifest.Manifest, l *manifest.Lock) (*Recipe, error) {
	if err := manifest.Verify(m, l); err != nil {
		return nil, err
	}

	pkgs := make([]Package, 0, len(l.Packages))
	for _, lp := range l.Packages {
		deps := slices.Clone(lp.Dependencies)
		slices.Sort(deps)

		pkgs = append(pkgs, Package{
			Name:         lp.Name,
			Version:      lp.Version,
			Source:       lp.Source,
			Checksum:     lp.Checksum,
			Dependencies: deps,
		})
	}

	slices.SortFunc(pkgs, func(a, b Package) int {
		return strings.Compare(a.Name, b.Name)
	})

	return &Recipe{
		FormatVersion: formatVersion,
		Packages:      pkgs,
	}, nil
}

// Returns the canonical encoding of the recipe.
func (r *Recipe) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode recipe: %w", err)
	}
	return data, nil
}

// Returns the content digest of the canonical encoding.
//
// The digest is the cache key for the recipe's dependency layer.
func (r *Recipe) Digest() (digest.Digest, error) {
	data, err := r.Encode()
	if err != nil {
		return "", err
	}
	return digest.FromBytes(data), nil
}
