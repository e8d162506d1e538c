package cli

import (
	"context"
	"log/slog"
	goruntime "runtime"

	"github.com/valutlabs/forge/internal/compile"
	"github.com/valutlabs/forge/internal/pipeline"
)

// Represents the 'forge build' command.
//
// Runs the pipeline through image assembly: plan, dependency cache,
// compile, assemble. Publishing requires the release command.
type BuildCmd struct {
	Manifest    string `short:"m" default:"forge.hcl" help:"Path to the project manifest." placeholder:"PATH"`
	Lock        string `short:"l" default:"forge.lock" help:"Path to the lock file." placeholder:"PATH"`
	Source      string `short:"s" default:"." help:"Application source tree." placeholder:"DIR"`
	Base        string `required:"" help:"Base system image archive (OCI tar)." placeholder:"PATH"`
	Mode        string `default:"static" enum:"static,dynamic" help:"Linking mode."`
	Platform    string `help:"Target platform (e.g., linux/amd64). Defaults to the host." placeholder:"OS/ARCH"`
	TrustRoots  string `help:"CA certificate bundle to embed." placeholder:"PATH"`
	ProbeClient string `help:"Probe client binary to embed." placeholder:"PATH"`
	NoProbe     bool   `help:"Skip embedding the liveness probe contract."`
	Output      string `short:"o" default:"dist" help:"Output directory." placeholder:"DIR"`
}

// Executes the build command.
func (c *BuildCmd) Run(ctx context.Context) error {
	_, err := pipeline.Run(ctx, c.options(""))
	if err != nil {
		return err
	}

	slog.Info("build complete", "output", c.Output)
	return nil
}

// Translates the command flags into pipeline options.
func (c *BuildCmd) options(version string) pipeline.Options {
	platform := c.Platform
	if platform == "" {
		platform = "linux/" + goruntime.GOARCH
	}

	return pipeline.Options{
		ManifestPath: c.Manifest,
		LockPath:     c.Lock,
		Source:       c.Source,
		Mode:         compile.Mode(c.Mode),
		Base:         c.Base,
		Platform:     platform,
		TrustRoots:   c.TrustRoots,
		ProbeClient:  c.ProbeClient,
		WithProbe:    !c.NoProbe,
		OutputDir:    c.Output,
		Version:      version,
	}
}
