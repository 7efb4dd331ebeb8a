package timestamp

import (
	"errors"
	"fmt"
	"time"

	"github.com/farcloser/hydrophone/internal/types"
)

// Example: ICLISTENHF1266_20180930T235802.000Z_TOL_1sHannWindow_50PercentOverlap.csv
const (
	filenameOffset = 15
	filenameLayout = "20060102T150405.000"
)

var ErrNoStartTime = errors.New("filename does not carry a start time")

// ParseFilename extracts the UTC start instant embedded in a PAMGuide export name.
func ParseFilename(name string) (time.Time, error) {
	end := filenameOffset + len(filenameLayout)
	if len(name) < end {
		return time.Time{}, fmt.Errorf("%w: %q is too short", ErrNoStartTime, name)
	}

	start, err := time.Parse(filenameLayout, name[filenameOffset:end])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %w", ErrNoStartTime, name, err)
	}

	return start, nil
}

// Reconstruct assigns every row its absolute time. Rows of one file are contiguous in the
// concatenation; the k-th row of a file is k intervals after the file start.
// Rows whose file name does not parse are left with TimeValid false.
// Returns the number of such rows.
func Reconstruct(rows []types.Row, interval time.Duration) int {
	var (
		invalid   int
		runStart  time.Time
		runValid  bool
		runOffset int
	)

	for i := range rows {
		if i == 0 || rows[i].Source != rows[i-1].Source {
			start, err := ParseFilename(rows[i].Source)
			runStart, runValid = start, err == nil
			runOffset = 0
		}

		if runValid {
			rows[i].Timestamp = runStart.Add(time.Duration(runOffset) * interval)
			rows[i].TimeValid = true
		} else {
			rows[i].Timestamp = time.Time{}
			rows[i].TimeValid = false
			invalid++
		}

		runOffset++
	}

	return invalid
}
