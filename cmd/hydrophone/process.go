//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/hydrophone"
	"github.com/farcloser/hydrophone/internal/integration/sqlite"
	"github.com/farcloser/hydrophone/internal/types"
)

var errProcessArgs = errors.New("expected exactly one argument: raw data folder")

func pipelineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "INI file with pipeline settings (flags take precedence)",
		},
		&cli.DurationFlag{
			Name:  "interval",
			Usage: "Sampling interval between rows of one export",
			Value: hydrophone.DefaultOptions().Interval,
		},
		&cli.DurationFlag{
			Name:  "window",
			Usage: "Background moving average span",
			Value: hydrophone.DefaultOptions().BackgroundWindow,
		},
		&cli.FloatFlag{
			Name:  "threshold",
			Usage: "Loud when broadband SPL exceeds the background by more than this many dB",
			Value: hydrophone.DefaultOptions().ThresholdDb,
		},
		&cli.IntFlag{
			Name:  "guard-rows",
			Usage: "Rows removed on each side of a row carrying a missing value",
			Value: hydrophone.DefaultOptions().GuardRows,
		},
		&cli.StringFlag{
			Name:  "bands",
			Usage: "Comma-separated band center frequencies in Hz (default: 25 Hz to 25119 Hz third-octaves)",
		},
		&cli.BoolFlag{
			Name:  "no-month-select",
			Usage: "Keep rows falling outside the month named by their folder",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: console, json, markdown",
			Value:   "console",
		},
	}
}

func processCommand() *cli.Command {
	flags := append(pipelineFlags(),
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "Output folder",
			Value:   hydrophone.DefaultOptions().OutDir,
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"j"},
			Usage:   "Number of months processed concurrently in the first pass",
			Value:   runtime.NumCPU(),
		},
		&cli.DurationFlag{
			Name:  "max-duration",
			Usage: "Discard transients longer than this (0 keeps every transient)",
		},
		&cli.StringFlag{
			Name:  "sqlite",
			Usage: "Also store month summaries and transients in this SQLite database",
		},
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"D"},
			Usage:   "Include the full month reports in output",
		},
	)

	return &cli.Command{
		Name:      "process",
		Usage:     "Detect transients in every month folder of a raw TOL export tree",
		ArgsUsage: "<raw-folder>",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errProcessArgs, cmd.NArg())
			}

			opts, err := buildOptions(cmd)
			if err != nil {
				return err
			}

			if cmd.IsSet("out") {
				opts.OutDir = cmd.String("out")
			}

			if cmd.IsSet("workers") {
				opts.Workers = cmd.Int("workers")
			}

			if cmd.IsSet("max-duration") {
				opts.MaxTransientDuration = cmd.Duration("max-duration")
			}

			if path := cmd.String("sqlite"); path != "" {
				store, err := sqlite.Open(ctx, path)
				if err != nil {
					return err
				}
				defer store.Close()

				opts.Store = store
			}

			result, err := hydrophone.Process(ctx, cmd.Args().First(), opts)
			if err != nil {
				return fmt.Errorf("processing failed: %w", err)
			}

			slog.Info("done", "months", len(result.Months), "failed", result.Failed, "out", opts.OutDir)

			return outputResult(result, cmd.String("format"), cmd.Bool("debug"))
		},
	}
}

// buildOptions layers defaults, the --config file, then explicitly set flags.
func buildOptions(cmd *cli.Command) (hydrophone.Options, error) {
	opts := hydrophone.DefaultOptions()

	if path := cmd.String("config"); path != "" {
		if err := hydrophone.LoadConfig(path, &opts); err != nil {
			return opts, err
		}
	}

	if cmd.IsSet("interval") {
		opts.Interval = cmd.Duration("interval")
	}

	if cmd.IsSet("window") {
		opts.BackgroundWindow = cmd.Duration("window")
	}

	if cmd.IsSet("threshold") {
		opts.ThresholdDb = cmd.Float("threshold")
	}

	if cmd.IsSet("guard-rows") {
		opts.GuardRows = cmd.Int("guard-rows")
	}

	if cmd.Bool("no-month-select") {
		opts.SelectMonth = false
	}

	if cmd.IsSet("bands") {
		schema, err := types.ParseSchema(cmd.String("bands"))
		if err != nil {
			return opts, err
		}

		opts.Schema = schema
	}

	opts.Logger = slog.Default()

	return opts, opts.Validate()
}
