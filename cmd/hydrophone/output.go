//nolint:wrapcheck
package main

import (
	"fmt"
	"os"

	"github.com/farcloser/primordium/format"

	"github.com/farcloser/hydrophone"
	"github.com/farcloser/hydrophone/internal/output"
	"github.com/farcloser/hydrophone/internal/types"
)

func outputResult(result *hydrophone.Result, formatName string, debug bool) error {
	return outputMonths(result.Months, formatName, debug)
}

func outputMonths(reports []types.MonthReport, formatName string, debug bool) error {
	formatter, err := format.GetFormatter(formatName)
	if err != nil {
		return err
	}

	data := make([]*format.Data, 0, len(reports))

	for i := range reports {
		report := &reports[i]

		var meta map[string]any
		if debug {
			meta = output.ReportToMap(report)
		} else {
			meta = buildFriendlyOutput(report)
		}

		data = append(data, &format.Data{
			Object: report.Month,
			Meta:   meta,
		})
	}

	return formatter.PrintAll(data, os.Stdout)
}

// buildFriendlyOutput creates a user-friendly summary of one month.
func buildFriendlyOutput(report *types.MonthReport) map[string]any {
	if report.Status == types.MonthFailed {
		return map[string]any{
			"summary": "failed: " + report.Error,
		}
	}

	meta := map[string]any{
		"summary": fmt.Sprintf("%s: %d transients (%d single-sample), %.1f%% of rows retained",
			report.Status, report.Transients, report.ShortTransients, report.Clean.RetainedPercent()),
	}

	props := map[string]any{
		"rows": fmt.Sprintf("%d read from %d files, %d kept after cleaning, %d with a full background window",
			report.InputRows, report.Files, report.Clean.Retained, report.OutputRows),
	}

	if report.Status != types.MonthEmpty || report.Clean.Retained > 0 {
		props["max_broadband_spl"] = fmt.Sprintf("%.1f dB (unnormalised)", report.MaxUnnormalised)
	}

	if report.LoudRows > 0 {
		props["loud_rows"] = fmt.Sprintf("%d (%.2f%%)", report.LoudRows,
			float64(report.LoudRows)/float64(report.OutputRows)*100)
	}

	if d := report.Durations; d.Count > 0 {
		props["durations"] = fmt.Sprintf("min %.1fs, max %.1fs (%.1f min), mean %.2fs, std %.2fs",
			d.MinSec, d.MaxSec, d.MaxSec/60, d.MeanSec, d.StdDevSec)
		props["longer_than_one_sample"] = d.LongerCount
	}

	if g := report.Gaps; g.Count > 0 {
		props["gaps"] = fmt.Sprintf("%d (%.0fs missing, longest %.0fs)", g.Count, g.MissingSec, g.LongestSec)
	}

	if report.CappedTransients > 0 {
		props["capped"] = report.CappedTransients
	}

	meta["properties"] = props

	return meta
}
