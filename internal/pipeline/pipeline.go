package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/valutlabs/forge/internal/assemble"
	"github.com/valutlabs/forge/internal/cache"
	"github.com/valutlabs/forge/internal/compile"
	"github.com/valutlabs/forge/internal/image"
	"github.com/valutlabs/forge/internal/manifest"
	"github.com/valutlabs/forge/internal/paths"
	"github.com/valutlabs/forge/internal/plan"
	"github.com/valutlabs/forge/internal/probe"
	"github.com/valutlabs/forge/internal/release"
)

// Controls a pipeline run.
type Options struct {
	ManifestPath string // Path to the project manifest.
	LockPath     string // Path to the lock file.
	Source       string // Application source tree.

	Mode     compile.Mode // Linking mode.
	Base     string       // Base system image archive.
	Platform string       // Target platform identifier.

	TrustRoots  string // CA bundle to embed. Empty omits it.
	ProbeClient string // Probe client binary to embed. Empty omits it.
	WithProbe   bool   // Whether to embed the liveness probe contract.

	OutputDir string // Directory for artifacts and archives.
	Version   string // Release version. Empty stops the run after assembly.

	Layers *cache.Store // Dependency layer store. Nil uses the default store.
}

// Outputs of a completed run.
type Result struct {
	RecipeDigest digest.Digest     // Cache key of the dependency layer.
	Layer        *cache.Layer      // The dependency layer used.
	Artifact     *compile.Artifact // The stripped binary.
	Image        *assemble.Image   // The assembled runtime image.
	Archive      string            // Path of the published archive. Empty when not published.
}

// Executes the pipeline stages in order.
//
// Stage boundaries are barriers: each stage receives only the completed
// output of the previous one, and cancellation is checked before every
// stage. The publish stage runs only when a version is supplied and only
// ever sees a fully assembled image.
func Run(ctx context.Context, opts Options) (*Result, error) {
	store := opts.Layers
	if store == nil {
		store = cache.Open()
	}

	if err := barrier(ctx, "plan"); err != nil {
		return nil, err
	}

	m, err := manifest.Load(opts.ManifestPath)
	if err != nil {
		return nil, err
	}
	lock, err := manifest.LoadLock(opts.LockPath)
	if err != nil {
		return nil, err
	}
	recipe, err := plan.Build(m, lock)
	if err != nil {
		return nil, err
	}
	recipeDigest, err := recipe.Digest()
	if err != nil {
		return nil, err
	}

	slog.Info("recipe planned", "digest", recipeDigest, "packages", len(recipe.Packages))

	if err := barrier(ctx, "cache"); err != nil {
		return nil, err
	}

	layer, err := store.Build(ctx, recipe)
	if err != nil {
		return nil, err
	}

	if err := barrier(ctx, "compile"); err != nil {
		return nil, err
	}

	work := paths.WorkDir(opts.OutputDir)
	if err := os.MkdirAll(work, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("prepare work dir: %w", err)
	}

	artifact, err := compile.Build(ctx, compile.Options{
		Source:    opts.Source,
		LayerDir:  layer.Dir,
		Toolchain: m.Toolchain,
		Mode:      opts.Mode,
		Name:      m.Service.Name,
		OutputDir: work,
	})
	if err != nil {
		return nil, err
	}

	if err := barrier(ctx, "assemble"); err != nil {
		return nil, err
	}

	contentStore, err := image.OpenStore(filepath.Join(work, "content"))
	if err != nil {
		return nil, err
	}

	img, err := assemble.Build(ctx, assemble.Options{
		Store:       contentStore,
		Base:        opts.Base,
		Binary:      artifact,
		ServiceName: m.Service.Name,
		Entrypoint:  m.Service.Entrypoint,
		Port:        m.Service.Port,
		Platform:    opts.Platform,
		TrustRoots:  opts.TrustRoots,
		ProbeClient: opts.ProbeClient,
		Probe:       opts.probeConfig(m),
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		RecipeDigest: recipeDigest,
		Layer:        layer,
		Artifact:     artifact,
		Image:        img,
	}

	if opts.Version == "" {
		return result, nil
	}

	if err := barrier(ctx, "publish"); err != nil {
		return nil, err
	}

	rel, err := release.Publish(ctx, img, m.Service.Name, opts.Version, opts.OutputDir)
	if err != nil {
		return nil, err
	}
	result.Archive = rel.Path

	return result, nil
}

// Returns the probe contract for the service, or nil when disabled.
func (o Options) probeConfig(m *manifest.Manifest) *probe.Config {
	if !o.WithProbe {
		return nil
	}

	port := m.Service.Port
	if port == 0 {
		port = 8000
	}

	cfg := probe.Config{
		URL: fmt.Sprintf("http://localhost:%d/health", port),
	}.WithDefaults()

	return &cfg
}

// Checks for cancellation before entering a stage.
func barrier(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		slog.Warn("run aborted", "stage", stage)
		return fmt.Errorf("aborted before %s stage: %w", stage, err)
	}
	slog.Debug("entering stage", "stage", stage)
	return nil
}
