package image

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/containerd/containerd/v2/core/content"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	return s
}

func writeSource(t *testing.T, name, data string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestWriteLayer(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	entries := []LayerEntry{
		{Source: writeSource(t, "valut", "service binary"), Path: "/usr/local/bin/valut", Mode: 0755},
		{Source: writeSource(t, "certs", "trust roots"), Path: "/etc/ssl/certs/ca-certificates.crt", Mode: 0644},
	}

	desc, diffID, err := s.WriteLayer(ctx, entries, "layer")
	if err != nil {
		t.Fatalf("WriteLayer failed: %v", err)
	}

	if desc.MediaType != ocispec.MediaTypeImageLayerGzip {
		t.Fatalf("media type = %q, want %q", desc.MediaType, ocispec.MediaTypeImageLayerGzip)
	}

	blob, err := content.ReadBlob(ctx, s.Content(), desc)
	if err != nil {
		t.Fatalf("reading layer blob: %v", err)
	}
	if int64(len(blob)) != desc.Size {
		t.Fatalf("blob size = %d, descriptor says %d", len(blob), desc.Size)
	}

	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("layer is not gzipped: %v", err)
	}
	uncompressed, err := io.ReadAll(gz)
	if err != nil {
		t.Fatal(err)
	}
	if got := digest.FromBytes(uncompressed); got != diffID {
		t.Fatalf("diff ID = %s, digest of uncompressed tar = %s", diffID, got)
	}

	files := make(map[string]string)
	dirs := make(map[string]bool)
	tr := tar.NewReader(bytes.NewReader(uncompressed))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			dirs[hdr.Name] = true
		case tar.TypeReg:
			data, err := io.ReadAll(tr)
			if err != nil {
				t.Fatal(err)
			}
			files[hdr.Name] = string(data)
			if hdr.ModTime.Unix() != 0 {
				t.Fatalf("entry %q has timestamp %v, want epoch", hdr.Name, hdr.ModTime)
			}
		}
	}

	if files["usr/local/bin/valut"] != "service binary" {
		t.Fatalf("binary entry content = %q", files["usr/local/bin/valut"])
	}
	if files["etc/ssl/certs/ca-certificates.crt"] != "trust roots" {
		t.Fatalf("trust roots entry content = %q", files["etc/ssl/certs/ca-certificates.crt"])
	}
	for _, dir := range []string{"usr/", "usr/local/", "usr/local/bin/", "etc/", "etc/ssl/", "etc/ssl/certs/"} {
		if !dirs[dir] {
			t.Fatalf("parent directory %q missing from layer", dir)
		}
	}
}

func TestWriteLayerDeterministic(t *testing.T) {
	ctx := context.Background()
	src := writeSource(t, "valut", "service binary")
	entries := []LayerEntry{{Source: src, Path: "/usr/local/bin/valut", Mode: 0755}}

	first, diffFirst, err := testStore(t).WriteLayer(ctx, entries, "layer")
	if err != nil {
		t.Fatalf("WriteLayer failed: %v", err)
	}
	second, diffSecond, err := testStore(t).WriteLayer(ctx, entries, "layer")
	if err != nil {
		t.Fatalf("WriteLayer failed: %v", err)
	}

	if first.Digest != second.Digest {
		t.Fatalf("layer digests differ: %s vs %s", first.Digest, second.Digest)
	}
	if diffFirst != diffSecond {
		t.Fatalf("diff IDs differ: %s vs %s", diffFirst, diffSecond)
	}
}

func TestWriteLayerMissingSource(t *testing.T) {
	s := testStore(t)
	entries := []LayerEntry{{Source: "/nonexistent/binary", Path: "/usr/local/bin/valut", Mode: 0755}}

	if _, _, err := s.WriteLayer(context.Background(), entries, "layer"); err == nil {
		t.Fatal("expected error for missing source file")
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	cfg := ocispec.Image{
		Platform: ocispec.Platform{OS: "linux", Architecture: "amd64"},
		Config:   ocispec.ImageConfig{Entrypoint: []string{"/usr/local/bin/valut"}},
	}

	desc, err := s.WriteJSON(ctx, ocispec.MediaTypeImageConfig, cfg, "config")
	if err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	if desc.MediaType != ocispec.MediaTypeImageConfig {
		t.Fatalf("media type = %q", desc.MediaType)
	}

	got, err := s.ReadConfig(ctx, desc)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}
	if got.Architecture != "amd64" || got.OS != "linux" {
		t.Fatalf("config platform = %s/%s", got.OS, got.Architecture)
	}
	if len(got.Config.Entrypoint) != 1 || got.Config.Entrypoint[0] != "/usr/local/bin/valut" {
		t.Fatalf("entrypoint = %v", got.Config.Entrypoint)
	}
}
