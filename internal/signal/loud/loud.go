package loud

import "github.com/farcloser/hydrophone/internal/types"

// Tag marks rows whose broadband SPL exceeds the background by more than thresholdDb.
// Each row is judged on its own; there is no hysteresis.
func Tag(rows []types.Row, thresholdDb float64) int {
	count := 0

	for i := range rows {
		rows[i].Loud = rows[i].Broadband > rows[i].Background+thresholdDb
		if rows[i].Loud {
			count++
		}
	}

	return count
}

// TagShort marks loud rows whose neighbours are both quiet. The table is padded with a loud
// row at each end, so a loud row on the table edge is never short: the run may continue
// beyond what was recorded.
func TagShort(rows []types.Row) int {
	count := 0

	for i := range rows {
		prev := i == 0 || rows[i-1].Loud
		next := i == len(rows)-1 || rows[i+1].Loud

		rows[i].Short = rows[i].Loud && !prev && !next
		if rows[i].Short {
			count++
		}
	}

	return count
}
