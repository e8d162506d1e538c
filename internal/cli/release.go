package cli

import (
	"context"
	"log/slog"

	"github.com/valutlabs/forge/internal/pipeline"
)

// Represents the 'forge release' command.
//
// Runs the full pipeline and publishes the assembled image as a versioned
// archive. The version is supplied here, never inferred; releasing the
// same version again overwrites the prior archive.
type ReleaseCmd struct {
	BuildCmd
	Version string `arg:"" help:"Release version (e.g., 0.0.1)."`
}

// Executes the release command.
func (c *ReleaseCmd) Run(ctx context.Context) error {
	result, err := pipeline.Run(ctx, c.options(c.Version))
	if err != nil {
		return err
	}

	slog.Info("release complete", "archive", result.Archive)
	return nil
}
