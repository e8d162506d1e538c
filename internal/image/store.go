package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/containerd/containerd/v2/core/content"
	"github.com/containerd/containerd/v2/core/images/archive"
	"github.com/containerd/containerd/v2/plugins/content/local"
	"github.com/containerd/errdefs"
	"github.com/containerd/platforms"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// A file-backed OCI content store scoped to a single build run.
type Store struct {
	cs  content.Store
	dir string
}

// Opens (creating if needed) a content store rooted at dir.
func OpenStore(dir string) (*Store, error) {
	cs, err := local.NewStore(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStore, err)
	}
	return &Store{cs: cs, dir: dir}, nil
}

// Returns the underlying content store.
func (s *Store) Content() content.Store {
	return s.cs
}

// Ingests an OCI image archive, returning the descriptor of its index.
//
// The archive may be single- or multi-platform; platform selection happens
// later via [Store.ResolveManifest].
func (s *Store) ImportArchive(ctx context.Context, path string) (ocispec.Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: %s", ErrStore, err)
	}
	defer f.Close()

	desc, err := archive.ImportIndex(ctx, s.cs, f)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: import %s: %s", ErrStore, path, err)
	}

	slog.Debug("archive imported", "path", path, "digest", desc.Digest)
	return desc, nil
}

// Serializes the image referenced by target to an OCI archive stream.
//
// The target descriptor is exported directly rather than looked up by name,
// so mutated manifests that exist only as blobs can be exported. The ref is
// attached to the archive entry as the OCI reference annotation. Only the
// manifest matching platform is included.
func (s *Store) ExportArchive(ctx context.Context, w io.Writer, target ocispec.Descriptor, ref, platform string) error {
	p, err := platforms.Parse(platform)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrStore, err)
	}

	err = archive.Export(ctx, s.cs, w,
		archive.WithManifest(target, ref),
		archive.WithPlatform(platforms.Only(p)),
	)
	if err != nil {
		return fmt.Errorf("%w: export %s: %s", ErrStore, ref, err)
	}

	return nil
}

// Loads an OCI manifest from the content store.
func (s *Store) ReadManifest(ctx context.Context, desc ocispec.Descriptor) (ocispec.Manifest, error) {
	var m ocispec.Manifest
	err := s.readJSON(ctx, desc, &m)
	return m, err
}

// Loads an OCI image index from the content store.
func (s *Store) ReadIndex(ctx context.Context, desc ocispec.Descriptor) (ocispec.Index, error) {
	var idx ocispec.Index
	err := s.readJSON(ctx, desc, &idx)
	return idx, err
}

// Loads an OCI image config from the content store.
func (s *Store) ReadConfig(ctx context.Context, desc ocispec.Descriptor) (ocispec.Image, error) {
	var img ocispec.Image
	err := s.readJSON(ctx, desc, &img)
	return img, err
}

// Reads a blob and unmarshals it into v.
func (s *Store) readJSON(ctx context.Context, desc ocispec.Descriptor, v any) error {
	b, err := content.ReadBlob(ctx, s.cs, desc)
	if errdefs.IsNotFound(err) {
		return fmt.Errorf("%w: blob %s not in store", ErrStore, desc.Digest)
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %s", ErrStore, desc.Digest, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: decode %s: %s", ErrStore, desc.Digest, err)
	}
	return nil
}

// Serializes a value and writes it to the content store, returning the
// descriptor that references the stored blob.
func (s *Store) WriteJSON(ctx context.Context, mediaType string, v any, ref string) (ocispec.Descriptor, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: %s", ErrStore, err)
	}

	desc := ocispec.Descriptor{
		MediaType: mediaType,
		Digest:    digest.FromBytes(b),
		Size:      int64(len(b)),
	}

	if err := content.WriteBlob(ctx, s.cs, ref, bytes.NewReader(b), desc); err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: write %s: %s", ErrStore, ref, err)
	}

	return desc, nil
}
