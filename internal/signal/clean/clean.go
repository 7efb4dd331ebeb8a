package clean

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/farcloser/hydrophone/internal/types"
)

type Options struct {
	GuardRows int // rows removed on each side of a bad row (default 2)
}

func DefaultOptions() Options {
	return Options{
		GuardRows: 2,
	}
}

// Clean removes every row carrying a missing or infinite value or an invalid timestamp,
// together with GuardRows neighbours on both sides in concatenation order, then restores
// time order and drops rows with invalid or repeated timestamps.
// Gaps left by removed rows are not filled.
func Clean(rows []types.Row, opts Options) ([]types.Row, types.CleanStats) {
	if opts.GuardRows < 0 {
		opts.GuardRows = 0
	}

	stats := types.CleanStats{Input: len(rows)}

	bad := make([]bool, len(rows))

	for i := range rows {
		bad[i] = !rows[i].TimeValid
		for b, level := range rows[i].Levels {
			if math.IsInf(level, 0) {
				rows[i].Levels[b] = math.NaN()
				level = math.NaN()
			}

			if math.IsNaN(level) {
				bad[i] = true
			}
		}

		if bad[i] {
			stats.Bad++
		}
	}

	drop := make([]bool, len(rows))

	for i, isBad := range bad {
		if !isBad {
			continue
		}

		for j := max(0, i-opts.GuardRows); j <= min(len(rows)-1, i+opts.GuardRows); j++ {
			drop[j] = true
		}
	}

	kept := make([]types.Row, 0, len(rows))

	for i := range rows {
		if drop[i] {
			stats.Guarded++

			continue
		}

		kept = append(kept, rows[i])
	}

	slices.SortStableFunc(kept, func(a, b types.Row) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	out := kept[:0]

	for i := range kept {
		if !kept[i].TimeValid {
			stats.InvalidTime++

			continue
		}

		if len(out) > 0 && out[len(out)-1].Timestamp.Equal(kept[i].Timestamp) {
			stats.Duplicates++

			continue
		}

		out = append(out, kept[i])
	}

	stats.Retained = len(out)

	return out, stats
}

var ErrMonthLabel = errors.New("month label is not YYYY_MM")

// MonthBounds parses a YYYY_MM month label into its half-open UTC range.
func MonthBounds(label string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006_01", label)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrMonthLabel, label)
	}

	return start, start.AddDate(0, 1, 0), nil
}

// SelectMonth keeps rows inside [start, end). Recordings that straddle a month boundary
// are exported into the month they started in, so their tail is dropped here.
func SelectMonth(rows []types.Row, start, end time.Time) ([]types.Row, int) {
	out := rows[:0]
	dropped := 0

	for i := range rows {
		if rows[i].Timestamp.Before(start) || !rows[i].Timestamp.Before(end) {
			dropped++

			continue
		}

		out = append(out, rows[i])
	}

	return out, dropped
}
