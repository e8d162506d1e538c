package image

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/containerd/containerd/v2/core/content"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// A single file placed into a layer.
type LayerEntry struct {
	Source string      // Host path of the file content.
	Path   string      // Absolute path inside the image.
	Mode   os.FileMode // Permission bits for the entry.
}

// Builds a gzipped tar layer from the given entries and writes it to the
// content store.
//
// Parent directories of every entry are created implicitly. The layer's
// timestamps are zeroed so that identical inputs produce identical blobs.
// Returns the layer descriptor and the diff ID (the digest of the
// uncompressed tar stream) for the image config.
func (s *Store) WriteLayer(ctx context.Context, entries []LayerEntry, ref string) (ocispec.Descriptor, digest.Digest, error) {
	var buf bytes.Buffer
	diff := digest.SHA256.Digester()

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(io.MultiWriter(gz, diff.Hash()))

	if err := writeEntries(tw, entries); err != nil {
		return ocispec.Descriptor{}, "", fmt.Errorf("%w: %s", ErrStore, err)
	}
	if err := tw.Close(); err != nil {
		return ocispec.Descriptor{}, "", fmt.Errorf("%w: %s", ErrStore, err)
	}
	if err := gz.Close(); err != nil {
		return ocispec.Descriptor{}, "", fmt.Errorf("%w: %s", ErrStore, err)
	}

	desc := ocispec.Descriptor{
		MediaType: ocispec.MediaTypeImageLayerGzip,
		Digest:    digest.FromBytes(buf.Bytes()),
		Size:      int64(buf.Len()),
	}

	if err := content.WriteBlob(ctx, s.cs, ref, bytes.NewReader(buf.Bytes()), desc); err != nil {
		return ocispec.Descriptor{}, "", fmt.Errorf("%w: write layer: %s", ErrStore, err)
	}

	return desc, diff.Digest(), nil
}

// Writes directory and file headers for all entries.
func writeEntries(tw *tar.Writer, entries []LayerEntry) error {
	seen := make(map[string]bool)

	for _, e := range entries {
		if err := writeParents(tw, seen, path.Dir(e.Path)); err != nil {
			return err
		}
		if err := writeFile(tw, e); err != nil {
			return err
		}
	}

	return nil
}

// Writes tar directory entries for dir and all its ancestors, skipping
// those already written.
func writeParents(tw *tar.Writer, seen map[string]bool, dir string) error {
	if dir == "/" || dir == "." || seen[dir] {
		return nil
	}
	if err := writeParents(tw, seen, path.Dir(dir)); err != nil {
		return err
	}

	seen[dir] = true
	return tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeDir,
		Name:     tarName(dir) + "/",
		Mode:     0755,
		ModTime:  time.Unix(0, 0),
	})
}

// Writes a single file entry from its host source.
func writeFile(tw *tar.Writer, e LayerEntry) error {
	f, err := os.Open(e.Source)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     tarName(e.Path),
		Mode:     int64(e.Mode),
		Size:     info.Size(),
		ModTime:  time.Unix(0, 0),
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	_, err = io.Copy(tw, f)
	return err
}

// Converts an absolute image path to a tar entry name.
func tarName(p string) string {
	return path.Clean(p)[1:]
}
