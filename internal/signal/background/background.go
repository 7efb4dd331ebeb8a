package background

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/farcloser/hydrophone/internal/types"
)

var (
	ErrWindowExceedsRows = errors.New("background window is longer than the table")
	ErrInvalidWindow     = errors.New("background window must be at least one row")
)

// WindowRows converts a background duration into a row count at the given sampling interval.
func WindowRows(window, interval time.Duration) int {
	if interval <= 0 {
		return 0
	}

	return int(window / interval)
}

// Estimate sets background_spl to the trailing mean of broadband_spl over window rows,
// the current row included, and returns the rows that have a full window of history.
// The window counts rows, not elapsed time: gaps left by cleaning are not accounted for.
func Estimate(rows []types.Row, window int) ([]types.Row, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, window)
	}

	if window > len(rows) {
		return nil, fmt.Errorf("%w: %d rows, window of %d", ErrWindowExceedsRows, len(rows), window)
	}

	values := make([]float64, len(rows))
	for i := range rows {
		values[i] = rows[i].Broadband
	}

	size := float64(window)
	sum := floats.Sum(values[:window])
	rows[window-1].Background = sum / size

	for i := window; i < len(rows); i++ {
		lo := i - window + 1
		// Resum once per window so the running sum does not drift.
		if lo%window == 0 {
			sum = floats.Sum(values[lo : i+1])
		} else {
			sum += values[i] - values[i-window]
		}

		rows[i].Background = sum / size
	}

	return rows[window-1:], nil
}
