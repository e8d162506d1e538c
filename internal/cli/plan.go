package cli

import (
	"context"
	"fmt"

	"github.com/valutlabs/forge/internal/manifest"
	"github.com/valutlabs/forge/internal/plan"
)

// Represents the 'forge plan' command.
type PlanCmd struct {
	Manifest string `short:"m" default:"forge.hcl" help:"Path to the project manifest." placeholder:"PATH"`
	Lock     string `short:"l" default:"forge.lock" help:"Path to the lock file." placeholder:"PATH"`
}

// Executes the plan command.
//
// Derives the dependency recipe and prints its digest and contents. The
// digest is the cache key that decides whether the dependency layer will
// be rebuilt on the next build.
func (c *PlanCmd) Run(ctx context.Context) error {
	m, err := manifest.Load(c.Manifest)
	if err != nil {
		return err
	}

	lock, err := manifest.LoadLock(c.Lock)
	if err != nil {
		return err
	}

	recipe, err := plan.Build(m, lock)
	if err != nil {
		return err
	}

	d, err := recipe.Digest()
	if err != nil {
		return err
	}

	fmt.Println(d)
	for _, pkg := range recipe.Packages {
		fmt.Printf("  %s %s\n", pkg.Name, pkg.Version)
	}

	return nil
}
