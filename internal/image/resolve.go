package image

import (
	"context"
	"fmt"

	"github.com/containerd/containerd/v2/core/images"
	"github.com/containerd/platforms"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Resolves a root descriptor to the platform-specific manifest.
//
// If the root is an OCI image index, the index is read and walked to find
// the manifest matching the given platform. Some registries serve index
// entries without explicit platform metadata; those descriptors are probed
// by reading the image config to extract the platform it declares.
func (s *Store) ResolveManifest(ctx context.Context, root ocispec.Descriptor, platform string) (ocispec.Descriptor, error) {
	if !images.IsIndexType(root.MediaType) {
		return root, nil
	}

	idx, err := s.ReadIndex(ctx, root)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	p, err := platforms.Parse(platform)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: %s", ErrStore, err)
	}

	if desc, ok := s.matchManifest(ctx, idx, platforms.OnlyStrict(p)); ok {
		return desc, nil
	}

	if len(idx.Manifests) == 0 {
		return ocispec.Descriptor{}, fmt.Errorf("%w: %s", ErrEmptyIndex, root.Digest)
	}
	return idx.Manifests[0], nil
}

// Searches the index for a manifest matching the given platform.
//
// Descriptors with an explicit platform field are checked first. If none
// match, descriptors without a platform field are probed by reading the
// image config to discover the platform.
func (s *Store) matchManifest(ctx context.Context, idx ocispec.Index, matcher platforms.MatchComparer) (ocispec.Descriptor, bool) {
	for _, m := range idx.Manifests {
		if m.Platform != nil && matcher.Match(*m.Platform) {
			return m, true
		}
	}
	for _, m := range idx.Manifests {
		if m.Platform != nil || !images.IsManifestType(m.MediaType) {
			continue
		}
		if p, ok := s.configPlatform(ctx, m); ok && matcher.Match(p) {
			return m, true
		}
	}
	return ocispec.Descriptor{}, false
}

// Reads the image config referenced by a manifest descriptor and returns
// the platform declared in the config.
//
// Returns false when the config cannot be read.
func (s *Store) configPlatform(ctx context.Context, desc ocispec.Descriptor) (ocispec.Platform, bool) {
	manifest, err := s.ReadManifest(ctx, desc)
	if err != nil {
		return ocispec.Platform{}, false
	}
	config, err := s.ReadConfig(ctx, manifest.Config)
	if err != nil {
		return ocispec.Platform{}, false
	}
	return ocispec.Platform{
		OS:           config.OS,
		Architecture: config.Architecture,
		Variant:      config.Variant,
	}, true
}
