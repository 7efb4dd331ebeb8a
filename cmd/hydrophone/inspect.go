//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/hydrophone"
	"github.com/farcloser/hydrophone/internal/types"
)

var errInspectArgs = errors.New("expected exactly one argument: month folder")

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Read and clean a single month folder without writing anything",
		ArgsUsage: "<month-folder>",
		Flags: append(pipelineFlags(),
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"D"},
				Usage:   "Include the full month report in output",
			},
		),
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errInspectArgs, cmd.NArg())
			}

			opts, err := buildOptions(cmd)
			if err != nil {
				return err
			}

			report, err := hydrophone.Inspect(cmd.Args().First(), opts)
			if err != nil {
				return fmt.Errorf("inspection failed: %w", err)
			}

			return outputMonths([]types.MonthReport{*report}, cmd.String("format"), cmd.Bool("debug"))
		},
	}
}
