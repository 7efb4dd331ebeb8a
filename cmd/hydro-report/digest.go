package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/hydrophone/internal/output"
)

var errDigestArgs = errors.New("expected exactly one argument: path to hydrophone-report.jsonl")

func digestCommand() *cli.Command {
	return &cli.Command{
		Name:      "digest",
		Usage:     "Produce a summary digest from a hydrophone JSONL report",
		ArgsUsage: "<report.jsonl>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "status",
				Usage: "Show only months with this status: ok, empty, failed",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return errDigestArgs
			}

			return runDigest(os.Stdout, cmd.Args().First(), cmd.String("status"))
		},
	}
}

func runDigest(w io.Writer, reportPath, statusFilter string) error {
	records, err := output.ReadReport(reportPath)
	if err != nil {
		return err
	}

	printDigest(w, records)

	if statusFilter != "" {
		printMonths(w, records, statusFilter)
	}

	return nil
}

// number reads an integer counter out of a decoded report map.
func number(meta map[string]any, key string) int {
	if v, ok := meta[key].(float64); ok {
		return int(v)
	}

	return 0
}

func printDigest(w io.Writer, records []output.Record) {
	statusDist := map[string]int{}

	var (
		inputRows, retained, outputRows int
		transients, short, capped       int
		passOne, passTwo                float64
		busiest                         []output.Record
	)

	for _, rec := range records {
		statusDist[rec.Status]++

		if rec.Timing != nil {
			passOne += rec.Timing.PassOneMs
			passTwo += rec.Timing.PassTwoMs
		}

		if rec.Report == nil {
			continue
		}

		inputRows += number(rec.Report, "input_rows")
		outputRows += number(rec.Report, "output_rows")
		transients += number(rec.Report, "transients")
		short += number(rec.Report, "short_transients")
		capped += number(rec.Report, "capped_transients")

		if cleaning, ok := rec.Report["cleaning"].(map[string]any); ok {
			retained += number(cleaning, "retained")
		}

		busiest = append(busiest, rec)
	}

	fmt.Fprintln(w, "=== Hydrophone Report Digest ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total months:  %d\n", len(records))
	fmt.Fprintf(w, "  OK:          %d\n", statusDist["ok"])
	fmt.Fprintf(w, "  Empty:       %d\n", statusDist["empty"])
	fmt.Fprintf(w, "  Failed:      %d\n", statusDist["failed"])
	fmt.Fprintln(w)

	fmt.Fprintln(w, "--- Rows ---")
	fmt.Fprintf(w, "  Read:        %d\n", inputRows)
	fmt.Fprintf(w, "  Retained:    %d", retained)

	if inputRows > 0 {
		fmt.Fprintf(w, " (%.2f%%)", float64(retained)/float64(inputRows)*100)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Output:      %d\n", outputRows)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "--- Transients ---")
	fmt.Fprintf(w, "  Total:          %d\n", transients)
	fmt.Fprintf(w, "  Single-sample:  %d\n", short)
	fmt.Fprintf(w, "  Capped:         %d\n", capped)
	fmt.Fprintln(w)

	slices.SortFunc(busiest, func(a, b output.Record) int {
		return number(b.Report, "transients") - number(a.Report, "transients")
	})

	fmt.Fprintln(w, "--- Transients Per Month ---")

	for _, rec := range busiest {
		fmt.Fprintf(w, "  %s  %d\n", rec.Month, number(rec.Report, "transients"))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "--- Timing ---")
	fmt.Fprintf(w, "  Pass one:    %.0fms (cumulative)\n", passOne)
	fmt.Fprintf(w, "  Pass two:    %.0fms\n", passTwo)
}

func printMonths(w io.Writer, records []output.Record, status string) {
	fmt.Fprintln(w)

	var matched []output.Record

	for _, rec := range records {
		if rec.Status == status {
			matched = append(matched, rec)
		}
	}

	if len(matched) == 0 {
		fmt.Fprintf(w, "No months with status %s\n", status)

		return
	}

	fmt.Fprintf(w, "=== %s: %d months ===\n\n", status, len(matched))

	for _, rec := range matched {
		fmt.Fprintf(w, "  %s\n", rec.Month)

		if rec.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", rec.Error)
		}

		if durations, ok := rec.Report["durations"].(map[string]any); ok {
			for _, key := range []string{"count", "min_sec", "max_sec", "mean_sec", "stddev_sec"} {
				fmt.Fprintf(w, "    %s: %v\n", key, durations[key])
			}
		}

		fmt.Fprintln(w)
	}
}
