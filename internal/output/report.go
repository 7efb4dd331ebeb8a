// Package output provides shared month report serialization for hydrophone JSON output.
package output

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/hydrophone/internal/types"
)

// Record is a single line in the JSONL report file.
type Record struct {
	Month  string         `json:"month"`
	Status string         `json:"status"`
	Report map[string]any `json:"report,omitempty"`
	Error  string         `json:"error,omitempty"`
	Timing *RecordTiming  `json:"timing,omitempty"`
}

// RecordTiming captures per-month processing durations in milliseconds.
type RecordTiming struct {
	PassOneMs float64 `json:"pass_one_ms"`
	PassTwoMs float64 `json:"pass_two_ms"`
	TotalMs   float64 `json:"total_ms"`
}

// ReportToMap converts a month report into the canonical map structure
// used for JSON and JSONL serialization.
func ReportToMap(report *types.MonthReport) map[string]any {
	meta := map[string]any{
		"files":      report.Files,
		"input_rows": report.InputRows,
		"cleaning": map[string]any{
			"input":            report.Clean.Input,
			"bad":              report.Clean.Bad,
			"removed":          report.Clean.Guarded,
			"invalid_time":     report.Clean.InvalidTime,
			"duplicates":       report.Clean.Duplicates,
			"out_of_month":     report.Clean.OutOfMonth,
			"retained":         report.Clean.Retained,
			"retained_percent": finite(report.Clean.RetainedPercent()),
		},
		"max_unnormalised_spl": finite(report.MaxUnnormalised),
		"global_max_spl":       finite(report.GlobalMax),
		"output_rows":          report.OutputRows,
		"loud_rows":            report.LoudRows,
		"short_transients":     report.ShortTransients,
		"transients":           report.Transients,
		"capped_transients":    report.CappedTransients,
	}

	if report.Gaps.Count > 0 {
		meta["gaps"] = GapsToMap(&report.Gaps)
	}

	if report.Durations.Count > 0 {
		meta["durations"] = DurationsToMap(&report.Durations)
	}

	return meta
}

// DurationsToMap converts duration statistics to a map.
func DurationsToMap(stats *types.DurationStats) map[string]any {
	return map[string]any{
		"count":        stats.Count,
		"min_sec":      finite(stats.MinSec),
		"max_sec":      finite(stats.MaxSec),
		"max_min":      finite(stats.MaxSec / 60),
		"mean_sec":     finite(stats.MeanSec),
		"stddev_sec":   finite(stats.StdDevSec),
		"longer_count": stats.LongerCount,
		"short_count":  stats.ShortCount,
	}
}

// GapsToMap converts gap detection results to a map.
func GapsToMap(result *types.GapResult) map[string]any {
	events := make([]any, 0, len(result.Events))
	for _, gap := range result.Events {
		events = append(events, map[string]any{
			"start":        gap.Start.UTC().Format(time.RFC3339Nano),
			"end":          gap.End.UTC().Format(time.RFC3339Nano),
			"duration_sec": gap.DurationSec,
		})
	}

	return map[string]any{
		"count":       result.Count,
		"longest_sec": result.LongestSec,
		"missing_sec": result.MissingSec,
		"events":      events,
	}
}

// ToRecord builds the JSONL record of a month.
func ToRecord(report *types.MonthReport) Record {
	record := Record{
		Month:  report.Month,
		Status: string(report.Status),
		Error:  report.Error,
		Timing: &RecordTiming{
			PassOneMs: report.PassOneMs,
			PassTwoMs: report.PassTwoMs,
			TotalMs:   report.PassOneMs + report.PassTwoMs,
		},
	}

	if report.Status != types.MonthFailed || report.InputRows > 0 {
		record.Report = ReportToMap(report)
	}

	return record
}

// WriteReport writes one JSONL record per month, in the given order.
func WriteReport(path string, reports []types.MonthReport) error {
	out, err := os.Create(path) //nolint:gosec // path is built from user-specified output folder
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}

	writer := bufio.NewWriter(out)
	enc := json.NewEncoder(writer)

	for i := range reports {
		if err := enc.Encode(ToRecord(&reports[i])); err != nil {
			_ = out.Close()

			return fmt.Errorf("writing record for %s: %w", reports[i].Month, err)
		}
	}

	if err := writer.Flush(); err != nil {
		_ = out.Close()

		return fmt.Errorf("writing report: %w", err)
	}

	return out.Close()
}

// ReadReport reads a JSONL report. Lines that do not parse become records carrying a parse
// error, so the line count is preserved.
func ReadReport(path string) ([]Record, error) {
	file, err := os.Open(path) //nolint:gosec // CLI tool opens user-specified report files
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}
	defer file.Close()

	var records []Record

	scanner := bufio.NewScanner(file)

	const maxLineSize = 1024 * 1024 // 1MB
	scanner.Buffer(make([]byte, 0, maxLineSize), maxLineSize)

	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			records = append(records, Record{Status: string(types.MonthFailed), Error: errParse.Error()})

			continue
		}

		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	return records, nil
}

var errParse = errors.New("parse error")

// finite drops values JSON cannot carry.
func finite(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	return v
}
