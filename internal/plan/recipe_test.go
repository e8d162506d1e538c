package plan

import (
	"bytes"
	"errors"
	"testing"

	"github.com/opencontainers/go-digest"

	"github.com/valutlabs/forge/internal/manifest"
)

func checksum(s string) string {
	return digest.FromString(s).String()
}

func testManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Service: manifest.Service{
			Name:       "valut",
			Entrypoint: []string{"/usr/local/bin/valut"},
		},
		Toolchain: manifest.Toolchain{
			Compile: "make",
			Output:  "out/valut",
			Strip:   "strip",
		},
		Dependencies: []manifest.Dependency{
			{Name: "actix-web", Version: "4.9.0"},
		},
	}
}

func testLock() *manifest.Lock {
	return &manifest.Lock{
		Version: manifest.LockFormatVersion,
		Packages: []manifest.LockPackage{
			{
				Name:         "actix-web",
				Version:      "4.9.0",
				Source:       "https://pkgs.example.com/actix-web",
				Checksum:     checksum("actix-web"),
				Dependencies: []string{"tokio", "serde"},
			},
			{
				Name:     "tokio",
				Version:  "1.41.0",
				Source:   "https://pkgs.example.com/tokio",
				Checksum: checksum("tokio"),
			},
			{
				Name:     "serde",
				Version:  "1.0.210",
				Source:   "https://pkgs.example.com/serde",
				Checksum: checksum("serde"),
			},
		},
	}
}

func TestBuildDeterministic(t *testing.T) {
	r1, err := Build(testManifest(), testLock())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	r2, err := Build(testManifest(), testLock())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	e1, err := r1.Encode()
	if err != nil {
		t.Fatal(err)
	}
	e2, err := r2.Encode()
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(e1, e2) {
		t.Fatal("identical inputs produced different encodings")
	}

	d1, _ := r1.Digest()
	d2, _ := r2.Digest()
	if d1 != d2 {
		t.Fatalf("digests differ: %s vs %s", d1, d2)
	}
}

func TestBuildCanonicalOrder(t *testing.T) {
	shuffled := testLock()
	shuffled.Packages[0], shuffled.Packages[2] = shuffled.Packages[2], shuffled.Packages[0]

	r1, err := Build(testManifest(), testLock())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	r2, err := Build(testManifest(), shuffled)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	d1, _ := r1.Digest()
	d2, _ := r2.Digest()
	if d1 != d2 {
		t.Fatal("package order changed the recipe digest")
	}

	for i := 1; i < len(r1.Packages); i++ {
		if r1.Packages[i-1].Name > r1.Packages[i].Name {
			t.Fatalf("packages not sorted: %q before %q", r1.Packages[i-1].Name, r1.Packages[i].Name)
		}
	}
}

func TestBuildIgnoresServiceIdentity(t *testing.T) {
	m := testManifest()
	m.Service.Name = "other"
	m.Service.Entrypoint = []string{"/bin/other"}
	m.Toolchain.Compile = "different command"

	r1, err := Build(testManifest(), testLock())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	r2, err := Build(m, testLock())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	d1, _ := r1.Digest()
	d2, _ := r2.Digest()
	if d1 != d2 {
		t.Fatal("recipe digest depends on non-dependency manifest content")
	}
}

func TestBuildLockChangeChangesDigest(t *testing.T) {
	r1, err := Build(testManifest(), testLock())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	bumped := testLock()
	bumped.Packages[1].Version = "1.42.0"
	bumped.Packages[1].Checksum = checksum("tokio-1.42.0")

	r2, err := Build(testManifest(), bumped)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	d1, _ := r1.Digest()
	d2, _ := r2.Digest()
	if d1 == d2 {
		t.Fatal("lock change did not change the recipe digest")
	}
}

func TestBuildRejectsInconsistentPair(t *testing.T) {
	l := testLock()
	l.Packages = l.Packages[1:] // drop the manifest's direct dependency

	if _, err := Build(testManifest(), l); !errors.Is(err, manifest.ErrParse) {
		t.Fatalf("err = %v, want manifest.ErrParse", err)
	}
}
