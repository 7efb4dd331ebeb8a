package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/hydrophone/version"
)

func main() {
	ctx := context.Background()

	appl := &cli.Command{
		Name:    "hydro-report",
		Usage:   "Summarize hydrophone run reports and transient tables",
		Version: version.Version() + " " + version.Commit(),
		Commands: []*cli.Command{
			digestCommand(),
			statsCommand(),
		},
	}

	if err := appl.Run(ctx, os.Args); err != nil {
		slog.Error("failed to run", "error", err)
		os.Exit(1)
	}
}
