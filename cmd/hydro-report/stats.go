//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/farcloser/primordium/format"
	"github.com/urfave/cli/v3"

	"github.com/farcloser/hydrophone"
	"github.com/farcloser/hydrophone/internal/integration/sqlite"
	"github.com/farcloser/hydrophone/internal/integration/tolcsv"
	"github.com/farcloser/hydrophone/internal/output"
	"github.com/farcloser/hydrophone/internal/signal/durations"
)

var errStatsArgs = errors.New("expected a transient table or folder, or --sqlite")

// durationGroup holds the transient durations of one month, or of a whole table.
type durationGroup struct {
	name      string
	durations []float64
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Report transient duration statistics and histograms",
		ArgsUsage: "[<transients.csv | transients-folder>]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "sqlite",
				Usage: "Read transients from a SQLite database written by hydrophone process --sqlite",
			},
			&cli.StringFlag{
				Name:  "month",
				Usage: "Only report this month (e.g. 2018_10, or 201810 for the combined table)",
			},
			&cli.IntFlag{
				Name:  "bins",
				Usage: "Histogram bins (0 disables the histogram)",
				Value: 0,
			},
			&cli.FloatFlag{
				Name:  "min-duration",
				Usage: "Histogram lower bound in seconds",
			},
			&cli.FloatFlag{
				Name:  "max-duration",
				Usage: "Histogram upper bound in seconds",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Sampling interval, the duration of a single-sample transient",
				Value: hydrophone.DefaultOptions().Interval,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: console, json, markdown",
				Value:   "console",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var (
				groups []durationGroup
				err    error
			)

			switch {
			case cmd.String("sqlite") != "":
				groups, err = groupsFromStore(ctx, cmd.String("sqlite"), cmd.String("month"))
			case cmd.NArg() == 1:
				groups, err = groupsFromTables(cmd.Args().First(), cmd.String("month"))
			default:
				return errStatsArgs
			}

			if err != nil {
				return err
			}

			hist := durations.HistogramOptions{
				Bins:        cmd.Int("bins"),
				MinDuration: cmd.Float("min-duration"),
				MaxDuration: cmd.Float("max-duration"),
			}

			return printStats(groups, hist, cmd)
		},
	}
}

func groupsFromStore(ctx context.Context, path, month string) ([]durationGroup, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	months := []string{month}
	if month == "" {
		if months, err = store.Months(ctx); err != nil {
			return nil, err
		}
	}

	groups := make([]durationGroup, 0, len(months))

	for _, label := range months {
		values, err := store.Durations(ctx, label)
		if err != nil {
			return nil, err
		}

		groups = append(groups, durationGroup{name: label, durations: values})
	}

	return groups, nil
}

// groupsFromTables reads one transient table, split by its month column when it has one, or
// every per-month table of a folder.
func groupsFromTables(path, month string) ([]durationGroup, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		values, months, err := tolcsv.ReadDurations(path)
		if err != nil {
			return nil, err
		}

		if months == nil {
			return []durationGroup{{name: tableName(path), durations: values}}, nil
		}

		return splitByMonth(values, months, month), nil
	}

	files, err := tolcsv.CSVFiles(path)
	if err != nil {
		return nil, err
	}

	var groups []durationGroup

	for _, file := range files {
		if filepath.Base(file) == hydrophone.AllTransientsFile {
			continue
		}

		name := tableName(file)
		if month != "" && name != month {
			continue
		}

		values, _, err := tolcsv.ReadDurations(file)
		if err != nil {
			return nil, err
		}

		groups = append(groups, durationGroup{name: name, durations: values})
	}

	return groups, nil
}

func splitByMonth(values []float64, months []string, only string) []durationGroup {
	var groups []durationGroup

	index := map[string]int{}

	for i, month := range months {
		if only != "" && month != only {
			continue
		}

		idx, ok := index[month]
		if !ok {
			idx = len(groups)
			index[month] = idx
			groups = append(groups, durationGroup{name: month})
		}

		groups[idx].durations = append(groups[idx].durations, values[i])
	}

	return groups
}

func tableName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func printStats(groups []durationGroup, hist durations.HistogramOptions, cmd *cli.Command) error {
	formatter, err := format.GetFormatter(cmd.String("format"))
	if err != nil {
		return err
	}

	data := make([]*format.Data, 0, len(groups))

	for _, group := range groups {
		stats := durations.Summarize(group.durations, cmd.Duration("interval"))
		meta := output.DurationsToMap(&stats)

		if hist.Bins > 0 {
			histogram, err := durations.Histogram(group.durations, hist)
			if err != nil {
				return err
			}

			meta["histogram"] = histogramLines(histogram.Dividers, histogram.Counts)
		}

		data = append(data, &format.Data{Object: group.name, Meta: meta})
	}

	return formatter.PrintAll(data, os.Stdout)
}

func histogramLines(dividers, counts []float64) []any {
	lines := make([]any, 0, len(counts))

	for i, count := range counts {
		if len(dividers) == 0 {
			lines = append(lines, fmt.Sprintf("(no events): %.0f", count))

			continue
		}

		lines = append(lines, fmt.Sprintf("[%.1fs, %.1fs): %.0f", dividers[i], dividers[i+1], count))
	}

	return lines
}
