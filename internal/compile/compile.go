package compile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/valutlabs/forge/internal/manifest"
	"github.com/valutlabs/forge/internal/paths"
)

// Linking mode for the compiled binary.
type Mode string

const (

	// Static linking: the binary embeds its library dependencies and runs
	// on minimal bases with no shared libraries.
	ModeStatic Mode = "static"

	// Dynamic linking: the binary relies on shared libraries provided by
	// the runtime base image.
	ModeDynamic Mode = "dynamic"
)

// Parses a linking mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeStatic:
		return ModeStatic, nil
	case ModeDynamic:
		return ModeDynamic, nil
	default:
		return "", fmt.Errorf("%w: unknown linking mode %q", ErrCompile, s)
	}
}

// Controls a compilation run.
type Options struct {
	Source    string             // Application source tree.
	LayerDir  string             // Committed dependency layer directory.
	Toolchain manifest.Toolchain // Commands from the project manifest.
	Mode      Mode               // Linking mode.
	Name      string             // Artifact filename (the service name).
	OutputDir string             // Directory receiving the artifact.
}

// A compiled, stripped binary.
type Artifact struct {
	Path           string // Path of the stripped binary.
	Mode           Mode   // Linking mode it was built with.
	Size           int64  // Size after stripping.
	UnstrippedSize int64  // Size before stripping.
}

// Environment variables exported to the toolchain commands.
const (
	envLayerDir  = "FORGE_DEP_LAYER"
	envLinkMode  = "FORGE_LINK_MODE"
	envLinkFlags = "FORGE_LINK_FLAGS"
)

// Compiles the application and strips the result.
//
// The toolchain's compile command runs in the source tree with the
// dependency layer, linking mode, and per-mode flags in its environment.
// The binary it leaves at the toolchain output path is copied into the
// artifact directory and stripped in place.
func Build(ctx context.Context, opts Options) (*Artifact, error) {
	slog.Info("compiling application",
		"source", opts.Source,
		"mode", opts.Mode,
		"layer", opts.LayerDir,
	)

	env := append(os.Environ(),
		envLayerDir+"="+opts.LayerDir,
		envLinkMode+"="+string(opts.Mode),
		envLinkFlags+"="+opts.modeFlags(),
	)

	if err := run(ctx, opts.Toolchain.Compile, opts.Source, env); err != nil {
		return nil, err
	}

	built := filepath.Join(opts.Source, opts.Toolchain.Output)
	artifact := filepath.Join(opts.OutputDir, opts.Name)

	unstripped, err := copyBinary(built, artifact)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCompile, err)
	}

	if err := run(ctx, opts.Toolchain.Strip+" "+shellQuote(artifact), opts.Source, env); err != nil {
		return nil, err
	}

	info, err := os.Stat(artifact)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCompile, err)
	}

	slog.Info("binary stripped",
		"path", artifact,
		"size", info.Size(),
		"unstripped", unstripped,
	)

	return &Artifact{
		Path:           artifact,
		Mode:           opts.Mode,
		Size:           info.Size(),
		UnstrippedSize: unstripped,
	}, nil
}

// Returns the linker flags for the selected mode.
func (o Options) modeFlags() string {
	if o.Mode == ModeStatic {
		return o.Toolchain.StaticFlags
	}
	return o.Toolchain.DynamicFlags
}

// Runs a toolchain command line through the shell.
//
// A non-zero exit is a compile error carrying the command's stderr.
// Compile errors are deterministic and never retried; a run killed by
// cancellation is not a compile error and propagates the context's error.
func run(ctx context.Context, command, dir string, env []string) error {
	slog.Debug("toolchain", "command", command)

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.Env = env

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("toolchain aborted: %w", ctx.Err())
		}
		return fmt.Errorf("%w: %s: %s", ErrCompile, err, strings.TrimSpace(stderr.String()))
	}

	return nil
}

// Quotes s as a single shell word. The artifact path contains the
// caller's output directory, which may hold spaces or metacharacters.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Copies the built binary to the artifact path, returning its size.
func copyBinary(src, dest string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), paths.DefaultDirMode); err != nil {
		return 0, err
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	n, err := io.Copy(out, in)
	if err != nil {
		return 0, err
	}

	return n, nil
}
