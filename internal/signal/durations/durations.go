package durations

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/farcloser/hydrophone/internal/types"
)

var ErrBins = errors.New("histogram needs at least one bin")

type HistogramOptions struct {
	Bins        int
	MinDuration float64 // seconds; events shorter are left out (0 = no lower bound)
	MaxDuration float64 // seconds; events longer are left out (0 = no upper bound)
}

// Summarize reports count, extremes, mean and population spread of transient durations.
func Summarize(durations []float64, interval time.Duration) types.DurationStats {
	stats := types.DurationStats{Count: len(durations)}
	if len(durations) == 0 {
		return stats
	}

	stats.MinSec = floats.Min(durations)
	stats.MaxSec = floats.Max(durations)
	stats.MeanSec, stats.StdDevSec = stat.PopMeanStdDev(durations, nil)

	unit := interval.Seconds()
	for _, d := range durations {
		switch {
		case d > unit:
			stats.LongerCount++
		case d == unit:
			stats.ShortCount++
		default:
		}
	}

	return stats
}

// Filter keeps durations inside the optional [min, max] range.
func Filter(durations []float64, minDuration, maxDuration float64) []float64 {
	out := make([]float64, 0, len(durations))

	for _, d := range durations {
		if minDuration > 0 && d < minDuration {
			continue
		}

		if maxDuration > 0 && d > maxDuration {
			continue
		}

		out = append(out, d)
	}

	return out
}

// Histogram bins durations into equal-width bins spanning the filtered data.
func Histogram(durations []float64, opts HistogramOptions) (types.Histogram, error) {
	if opts.Bins < 1 {
		return types.Histogram{}, fmt.Errorf("%w: got %d", ErrBins, opts.Bins)
	}

	values := Filter(durations, opts.MinDuration, opts.MaxDuration)
	if len(values) == 0 {
		return types.Histogram{Counts: make([]float64, opts.Bins)}, nil
	}

	slices.Sort(values)

	lo, hi := values[0], values[len(values)-1]
	if hi == lo {
		hi = lo + 1
	}

	dividers := floats.Span(make([]float64, opts.Bins+1), lo, hi)
	// The top divider is exclusive; nudge it so the longest event lands in the last bin.
	dividers[opts.Bins] = math.Nextafter(hi, math.Inf(1))

	return types.Histogram{
		Dividers: dividers,
		Counts:   stat.Histogram(nil, dividers, values, nil),
	}, nil
}
