package gaps

import (
	"slices"
	"time"

	"github.com/farcloser/hydrophone/internal/signal/shared"
	"github.com/farcloser/hydrophone/internal/types"
)

type Options struct {
	Interval  time.Duration // expected step between rows (default 500ms)
	Tolerance time.Duration // steps up to Interval + Tolerance are not gaps; default 100ms
	MaxEvents int           // longest gaps kept in the result; default 10
}

func DefaultOptions() Options {
	return Options{
		Interval:  shared.SamplingInterval,
		Tolerance: 100 * time.Millisecond,
		MaxEvents: 10,
	}
}

// Detect scans time-ordered rows for steps longer than one sampling interval. Gaps come from
// rows removed during cleaning and from time not covered by any export.
func Detect(rows []types.Row, opts Options) *types.GapResult {
	if opts.Interval <= 0 {
		opts.Interval = shared.SamplingInterval
	}

	result := &types.GapResult{}

	for i := 1; i < len(rows); i++ {
		step := rows[i].Timestamp.Sub(rows[i-1].Timestamp)
		if step <= opts.Interval+opts.Tolerance {
			continue
		}

		missing := (step - opts.Interval).Seconds()

		result.Count++
		result.MissingSec += missing
		result.LongestSec = max(result.LongestSec, missing)

		result.Events = append(result.Events, types.Gap{
			Start:       rows[i-1].Timestamp,
			End:         rows[i].Timestamp,
			DurationSec: missing,
		})
	}

	slices.SortStableFunc(result.Events, func(a, b types.Gap) int {
		switch {
		case a.DurationSec > b.DurationSec:
			return -1
		case a.DurationSec < b.DurationSec:
			return 1
		default:
			return 0
		}
	})

	if opts.MaxEvents >= 0 && len(result.Events) > opts.MaxEvents {
		result.Events = result.Events[:opts.MaxEvents]
	}

	return result
}
