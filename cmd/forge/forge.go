package main

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"

	"github.com/valutlabs/forge/internal"
	"github.com/valutlabs/forge/internal/cli"
)

// The entry point for the forge CLI.
//
// Installs a provisional logger, then executes the root command, which
// reconfigures logging from the parsed flags. Any error fails the whole
// run; there is no partial-success mode.
func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, nil)))

	slog.Debug("forge starting",
		"version", internal.VersionString(),
		"pid", os.Getpid(),
	)

	if err := cli.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
