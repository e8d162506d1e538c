package compile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valutlabs/forge/internal/manifest"
)

// A toolchain whose compile step writes a padded fake binary and whose
// strip step empties it, so size effects are observable.
func fakeToolchain() manifest.Toolchain {
	return manifest.Toolchain{
		Compile:      "mkdir -p out && printf 'fake binary with debug symbols and padding' > out/app",
		Output:       "out/app",
		Strip:        "cp /dev/null",
		StaticFlags:  "-static-flag",
		DynamicFlags: "-dynamic-flag",
	}
}

func testOptions(t *testing.T, tc manifest.Toolchain, mode Mode) Options {
	t.Helper()
	return Options{
		Source:    t.TempDir(),
		LayerDir:  t.TempDir(),
		Toolchain: tc,
		Mode:      mode,
		Name:      "valut",
		OutputDir: t.TempDir(),
	}
}

func TestBuild(t *testing.T) {
	opts := testOptions(t, fakeToolchain(), ModeStatic)

	artifact, err := Build(context.Background(), opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if artifact.Path != filepath.Join(opts.OutputDir, "valut") {
		t.Fatalf("artifact path = %q", artifact.Path)
	}
	if artifact.Mode != ModeStatic {
		t.Fatalf("artifact mode = %q, want static", artifact.Mode)
	}
	if artifact.UnstrippedSize == 0 {
		t.Fatal("unstripped size not recorded")
	}
	if artifact.Size >= artifact.UnstrippedSize {
		t.Fatalf("stripped size %d not smaller than unstripped %d", artifact.Size, artifact.UnstrippedSize)
	}

	info, err := os.Stat(artifact.Path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0111 == 0 {
		t.Fatal("artifact is not executable")
	}
}

func TestBuildModeFlags(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{ModeStatic, "-static-flag"},
		{ModeDynamic, "-dynamic-flag"},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			tc := fakeToolchain()
			// Record the exported build environment instead of compiling.
			tc.Compile = `mkdir -p out && printf '%s %s' "$FORGE_LINK_MODE" "$FORGE_LINK_FLAGS" > out/app`

			opts := testOptions(t, tc, tt.mode)
			opts.Toolchain.Strip = "true" // keep the recorded env readable

			artifact, err := Build(context.Background(), opts)
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}

			data, err := os.ReadFile(artifact.Path)
			if err != nil {
				t.Fatal(err)
			}
			got := string(data)
			if got != string(tt.mode)+" "+tt.want {
				t.Fatalf("recorded env = %q, want %q", got, string(tt.mode)+" "+tt.want)
			}
		})
	}
}

func TestBuildExportsLayerDir(t *testing.T) {
	tc := fakeToolchain()
	tc.Compile = `mkdir -p out && printf '%s' "$FORGE_DEP_LAYER" > out/app`

	opts := testOptions(t, tc, ModeStatic)
	opts.Toolchain.Strip = "true"

	artifact, err := Build(context.Background(), opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != opts.LayerDir {
		t.Fatalf("FORGE_DEP_LAYER = %q, want %q", string(data), opts.LayerDir)
	}
}

func TestBuildCompileError(t *testing.T) {
	tc := fakeToolchain()
	tc.Compile = "echo 'type error: mismatched types' >&2; exit 1"

	_, err := Build(context.Background(), testOptions(t, tc, ModeStatic))
	if !errors.Is(err, ErrCompile) {
		t.Fatalf("err = %v, want ErrCompile", err)
	}
	if !strings.Contains(err.Error(), "mismatched types") {
		t.Fatalf("err = %v, want toolchain stderr in message", err)
	}
}

func TestBuildStripError(t *testing.T) {
	tc := fakeToolchain()
	tc.Strip = "false" // always fails

	_, err := Build(context.Background(), testOptions(t, tc, ModeStatic))
	if !errors.Is(err, ErrCompile) {
		t.Fatalf("err = %v, want ErrCompile", err)
	}
}

func TestBuildMissingOutput(t *testing.T) {
	tc := fakeToolchain()
	tc.Compile = "true" // produces nothing

	_, err := Build(context.Background(), testOptions(t, tc, ModeStatic))
	if !errors.Is(err, ErrCompile) {
		t.Fatalf("err = %v, want ErrCompile", err)
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, testOptions(t, fakeToolchain(), ModeStatic))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrCompile) {
		t.Fatalf("err = %v, cancellation misreported as a compile failure", err)
	}
}

func TestBuildOutputDirWithSpaces(t *testing.T) {
	opts := testOptions(t, fakeToolchain(), ModeStatic)
	opts.OutputDir = filepath.Join(t.TempDir(), "release artifacts (v1)")

	artifact, err := Build(context.Background(), opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if artifact.Path != filepath.Join(opts.OutputDir, "valut") {
		t.Fatalf("artifact path = %q", artifact.Path)
	}
	if artifact.Size >= artifact.UnstrippedSize {
		t.Fatalf("strip did not run: size %d, unstripped %d", artifact.Size, artifact.UnstrippedSize)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{input: "static", want: ModeStatic},
		{input: "dynamic", want: ModeDynamic},
		{input: "Static", want: ModeStatic},
		{input: "shared", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrCompile) {
					t.Fatalf("err = %v, want ErrCompile", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMode failed: %v", err)
			}
			if got != tt.want {
				t.Fatalf("mode = %q, want %q", got, tt.want)
			}
		})
	}
}
