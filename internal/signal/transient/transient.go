package transient

import (
	"math"
	"time"

	"github.com/farcloser/hydrophone/internal/types"
)

type Options struct {
	Interval    time.Duration // sampling interval (default 500ms)
	MaxDuration time.Duration // discard longer events; 0 disables the cap
}

func DefaultOptions() Options {
	return Options{
		Interval: 500 * time.Millisecond,
	}
}

// Segment groups consecutive loud rows into transient events.
// An event is short when it is a single row with a quiet row on each side. A single loud row
// on the table edge is not short, as with loud.TagShort.
// Rows must be in time order. Contiguity is by row position: rows removed during cleaning
// do not split an event.
func Segment(rows []types.Row, opts Options) *types.TransientResult {
	if opts.Interval == 0 {
		opts.Interval = 500 * time.Millisecond
	}

	result := &types.TransientResult{}

	var (
		inside bool
		first  int
		sums   []float64
		peak   float64
	)

	emit := func(last int) {
		samples := last - first + 1
		span := rows[last].Timestamp.Sub(rows[first].Timestamp) + opts.Interval

		if opts.MaxDuration > 0 && span > opts.MaxDuration {
			result.Capped++

			return
		}

		levels := make([]float64, len(sums))
		for b, sum := range sums {
			levels[b] = sum / float64(samples)
		}

		result.Events = append(result.Events, types.Transient{
			Start:         rows[first].Timestamp,
			End:           rows[last].Timestamp,
			Duration:      span.Seconds(),
			Samples:       samples,
			Levels:        levels,
			PeakBroadband: peak,
			Short:         samples == 1 && first > 0 && last < len(rows)-1,
		})
	}

	for i := range rows {
		switch {
		case rows[i].Loud && !inside:
			// Entering event
			inside = true
			first = i
			peak = math.Inf(-1)
			sums = make([]float64, len(rows[i].Levels))

			fallthrough
		case rows[i].Loud && inside:
			// Continuing event
			result.LoudRows++
			peak = max(peak, rows[i].Broadband)

			for b, level := range rows[i].Levels {
				if b < len(sums) {
					sums[b] += level
				}
			}
		case !rows[i].Loud && inside:
			// Leaving event
			emit(i - 1)

			inside = false
		default:
		}
	}

	// Event still open at the end of the table
	if inside {
		emit(len(rows) - 1)
	}

	return result
}

// Durations extracts event durations in seconds.
func Durations(events []types.Transient) []float64 {
	out := make([]float64, len(events))
	for i, event := range events {
		out[i] = event.Duration
	}

	return out
}
