//nolint:wrapcheck
package hydrophone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/hydrophone/internal/integration/tolcsv"
	"github.com/farcloser/hydrophone/internal/output"
	"github.com/farcloser/hydrophone/internal/signal/background"
	"github.com/farcloser/hydrophone/internal/signal/broadband"
	"github.com/farcloser/hydrophone/internal/signal/clean"
	"github.com/farcloser/hydrophone/internal/signal/durations"
	"github.com/farcloser/hydrophone/internal/signal/gaps"
	"github.com/farcloser/hydrophone/internal/signal/loud"
	"github.com/farcloser/hydrophone/internal/signal/timestamp"
	"github.com/farcloser/hydrophone/internal/signal/transient"
	"github.com/farcloser/hydrophone/internal/types"
)

const (
	interimDir    = "interim"
	monthlyDir    = "monthly"
	transientsDir = "transients"

	// AllTransientsFile is the combined transient table, under the transients folder.
	AllTransientsFile = "all.csv"
	// WholePeriodFile holds broadband and background SPL for every processed month.
	WholePeriodFile = "whole_period.csv"
	// ReportFile is the JSONL run report, one record per month.
	ReportFile = "hydrophone-report.jsonl"
)

var (
	errNoMonths    = errors.New("no month folders found")
	errConfigValue = errors.New("invalid configuration value")
)

// Result contains the outcome of a run.
type Result struct {
	Months    []types.MonthReport // in folder name order
	GlobalMax float64             // largest unnormalised broadband SPL over every month
	Failed    int
}

// Process runs both passes over every month folder found under rawRoot.
//
// The first pass reads, cleans and computes the unnormalised broadband SPL of each month
// concurrently, and spills the result under OutDir/interim. Once every month is done, the
// global maximum is reduced and the second pass normalises, estimates the background, tags
// loud rows and segments transients month by month.
//
// A month that fails is recorded in its report and does not stop the others. An error is
// returned only when no month produced a maximum, or on a write failure shared by every
// month.
func Process(ctx context.Context, rawRoot string, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	applyDefaults(&opts)

	info, err := os.Stat(rawRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%q: %w", rawRoot, tolcsv.ErrNotDirectory)
	}

	months, err := tolcsv.DiscoverMonths(rawRoot)
	if err != nil {
		return nil, err
	}

	if len(months) == 0 {
		return nil, fmt.Errorf("%q: %w", rawRoot, errNoMonths)
	}

	for _, dir := range []string{interimDir, monthlyDir, transientsDir} {
		if err := os.MkdirAll(filepath.Join(opts.OutDir, dir), 0o755); err != nil {
			return nil, fmt.Errorf("creating output folder: %w", err)
		}
	}

	result := &Result{Months: make([]types.MonthReport, len(months))}

	runPassOne(ctx, months, &opts, result.Months)

	if err := ctx.Err(); err != nil {
		return result, err
	}

	var maxima []float64

	for i := range result.Months {
		report := &result.Months[i]
		if report.Status == types.MonthOK {
			maxima = append(maxima, report.MaxUnnormalised)
		}
	}

	result.GlobalMax, err = broadband.GlobalMax(maxima)
	if err != nil {
		for i := range result.Months {
			if result.Months[i].Status == types.MonthFailed {
				result.Failed++
			}
		}

		_ = output.WriteReport(filepath.Join(opts.OutDir, ReportFile), result.Months)

		return result, err
	}

	opts.Logger.Info("global maximum", "broadband_spl", result.GlobalMax, "months", len(maxima))

	if err := runPassTwo(ctx, &opts, result); err != nil {
		return result, err
	}

	for i := range result.Months {
		if result.Months[i].Status == types.MonthFailed {
			result.Failed++
		}
	}

	if err := output.WriteReport(filepath.Join(opts.OutDir, ReportFile), result.Months); err != nil {
		return result, err
	}

	return result, nil
}

func runPassOne(ctx context.Context, months []tolcsv.Month, opts *Options, reports []types.MonthReport) {
	sem := make(chan struct{}, opts.Workers)

	var waitGroup sync.WaitGroup

	for idx, month := range months {
		waitGroup.Add(1)

		go func(idx int, month tolcsv.Month) {
			defer waitGroup.Done()

			sem <- struct{}{}

			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				reports[idx] = types.MonthReport{Month: month.Label, Status: types.MonthFailed, Error: err.Error()}

				return
			}

			reports[idx] = passOne(month, opts)
		}(idx, month)
	}

	waitGroup.Wait()
}

func passOne(month tolcsv.Month, opts *Options) types.MonthReport {
	start := time.Now()
	logger := opts.Logger.With("month", month.Label)

	rows, report, err := prepareMonth(month, opts, logger)
	if err == nil {
		err = tolcsv.WriteInterim(interimPath(opts, month.Label), rows, opts.Schema)
	}

	if err != nil {
		logger.Error("month failed", "error", err)

		report.Status = types.MonthFailed
		report.Error = err.Error()
	}

	report.PassOneMs = durationMs(time.Since(start))

	return report
}

// prepareMonth reads a month folder and returns its cleaned rows, with the unnormalised
// broadband SPL set.
func prepareMonth(month tolcsv.Month, opts *Options, logger *slog.Logger) ([]types.Row, types.MonthReport, error) {
	report := types.MonthReport{
		Month:           month.Label,
		Status:          types.MonthOK,
		MaxUnnormalised: math.Inf(-1),
	}

	rows, files, err := tolcsv.ReadMonth(month.Dir, opts.Schema)
	if err != nil {
		return nil, report, err
	}

	report.Files = files
	report.InputRows = len(rows)

	if invalid := timestamp.Reconstruct(rows, opts.Interval); invalid > 0 {
		logger.Warn("rows without a start time in their filename", "rows", invalid)
	}

	rows, stats := clean.Clean(rows, clean.Options{GuardRows: opts.GuardRows})

	if opts.SelectMonth {
		first, end, err := clean.MonthBounds(month.Label)
		if err != nil {
			logger.Warn("month selection skipped", "error", err)
		} else {
			rows, stats.OutOfMonth = clean.SelectMonth(rows, first, end)
			stats.Retained = len(rows)
		}
	}

	report.Clean = stats

	gapOpts := gaps.DefaultOptions()
	gapOpts.Interval = opts.Interval
	report.Gaps = *gaps.Detect(rows, gapOpts)

	if report.Gaps.Count > 0 {
		logger.Info("gaps in retained rows",
			"gaps", report.Gaps.Count,
			"missing_sec", report.Gaps.MissingSec,
			"longest_sec", report.Gaps.LongestSec,
		)
	}

	logger.Info("cleaned",
		"files", files,
		"input", stats.Input,
		"removed", stats.Guarded,
		"duplicates", stats.Duplicates,
		"out_of_month", stats.OutOfMonth,
		"retained_percent", fmt.Sprintf("%.2f", stats.RetainedPercent()),
	)

	maxSpl, ok := broadband.Compute(rows)
	if ok {
		report.MaxUnnormalised = maxSpl
	} else {
		logger.Warn("no rows left after cleaning")

		report.Status = types.MonthEmpty
	}

	return rows, report, nil
}

// Inspect runs the first pass over a single month folder without writing anything, and
// reports what cleaning kept and the month's unnormalised maximum.
func Inspect(dir string, opts Options) (*types.MonthReport, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	applyDefaults(&opts)

	start := time.Now()
	month := tolcsv.Month{Label: filepath.Base(filepath.Clean(dir)), Dir: dir}

	_, report, err := prepareMonth(month, &opts, opts.Logger.With("month", month.Label))
	if err != nil {
		return nil, err
	}

	report.PassOneMs = durationMs(time.Since(start))

	return &report, nil
}

func runPassTwo(ctx context.Context, opts *Options, result *Result) error {
	allWriter, err := tolcsv.CreateTransients(
		filepath.Join(opts.OutDir, transientsDir, AllTransientsFile), opts.Schema, true)
	if err != nil {
		return err
	}
	defer allWriter.Close()

	wholeWriter, err := tolcsv.CreateWholePeriod(filepath.Join(opts.OutDir, WholePeriodFile))
	if err != nil {
		return err
	}
	defer wholeWriter.Close()

	window := background.WindowRows(opts.BackgroundWindow, opts.Interval)

	for i := range result.Months {
		if err := ctx.Err(); err != nil {
			return err
		}

		report := &result.Months[i]
		if report.Status == types.MonthFailed {
			continue
		}

		// Empty after the first pass: nothing was left to normalise.
		if report.Status == types.MonthEmpty {
			opts.Logger.Info("no rows after cleaning, skipping transient detection", "month", report.Month)

			continue
		}

		report.GlobalMax = result.GlobalMax

		rows, events, err := passTwo(ctx, opts, report, window)
		if err != nil {
			opts.Logger.Error("month failed", "month", report.Month, "error", err)

			report.Status = types.MonthFailed
			report.Error = err.Error()

			continue
		}

		if err := allWriter.Write(events); err != nil {
			return err
		}

		if err := wholeWriter.Write(rows); err != nil {
			return err
		}
	}

	if err := allWriter.Close(); err != nil {
		return err
	}

	return wholeWriter.Close()
}

func passTwo(ctx context.Context, opts *Options, report *types.MonthReport, window int) ([]types.Row, []types.Transient, error) {
	start := time.Now()
	logger := opts.Logger.With("month", report.Month)

	rows, err := tolcsv.ReadInterim(interimPath(opts, report.Month), opts.Schema)
	if err != nil {
		return nil, nil, err
	}

	broadband.Normalise(rows, report.GlobalMax)

	rows, err = background.Estimate(rows, window)
	if errors.Is(err, background.ErrWindowExceedsRows) {
		logger.Warn("fewer rows than one background window, month has no output rows",
			"rows", report.Clean.Retained, "window", window)

		report.Status = types.MonthEmpty
		rows = nil
	} else if err != nil {
		return nil, nil, err
	}

	report.OutputRows = len(rows)
	report.LoudRows = loud.Tag(rows, opts.ThresholdDb)
	report.ShortTransients = loud.TagShort(rows)

	segmented := transient.Segment(rows, transient.Options{
		Interval:    opts.Interval,
		MaxDuration: opts.MaxTransientDuration,
	})

	compact := strings.ReplaceAll(report.Month, "_", "")
	for j := range segmented.Events {
		segmented.Events[j].Month = compact
	}

	report.Transients = len(segmented.Events)
	report.CappedTransients = segmented.Capped
	report.Durations = durations.Summarize(transient.Durations(segmented.Events), opts.Interval)

	if len(rows) > 0 && report.LoudRows == 0 {
		logger.Info("no loud rows")
	}

	table := &types.Table{Month: report.Month, Schema: opts.Schema, Rows: rows}
	if err := tolcsv.WriteMonthly(filepath.Join(opts.OutDir, monthlyDir, report.Month+".csv"), table); err != nil {
		return nil, nil, err
	}

	writer, err := tolcsv.CreateTransients(
		filepath.Join(opts.OutDir, transientsDir, report.Month+".csv"), opts.Schema, false)
	if err != nil {
		return nil, nil, err
	}

	if err := writer.Write(segmented.Events); err != nil {
		_ = writer.Close()

		return nil, nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, nil, err
	}

	if opts.Store != nil {
		if err := opts.Store.SaveMonth(ctx, report, segmented.Events, opts.Schema); err != nil {
			return nil, nil, err
		}
	}

	report.PassTwoMs = durationMs(time.Since(start))

	logger.Info("transients",
		"rows", report.OutputRows,
		"loud", report.LoudRows,
		"short", report.ShortTransients,
		"events", report.Transients,
		"capped", report.CappedTransients,
	)

	return rows, segmented.Events, nil
}

func interimPath(opts *Options, label string) string {
	return filepath.Join(opts.OutDir, interimDir, label+".csv")
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
