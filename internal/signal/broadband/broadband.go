package broadband

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/farcloser/hydrophone/internal/types"
)

var ErrNoMaxima = errors.New("no monthly maxima to normalise against")

// Natural log of 10^(x/10) is x*dbToNeper, so the energy sum can go through log-sum-exp.
const dbToNeper = math.Ln10 / 10

// Level returns 10*log10(sum(10^(x/10))) over the band levels.
// scratch is reused when large enough.
func Level(levels, scratch []float64) float64 {
	if len(levels) == 0 {
		return math.Inf(-1)
	}

	if cap(scratch) < len(levels) {
		scratch = make([]float64, len(levels))
	}

	scratch = scratch[:len(levels)]
	floats.ScaleTo(scratch, dbToNeper, levels)

	return floats.LogSumExp(scratch) / dbToNeper
}

// Compute sets the unnormalised broadband SPL of every row and returns the table maximum.
// An empty table yields -Inf and false.
func Compute(rows []types.Row) (float64, bool) {
	if len(rows) == 0 {
		return math.Inf(-1), false
	}

	var scratch []float64

	peak := math.Inf(-1)

	for i := range rows {
		if cap(scratch) < len(rows[i].Levels) {
			scratch = make([]float64, len(rows[i].Levels))
		}

		rows[i].Unnormalised = Level(rows[i].Levels, scratch)
		peak = max(peak, rows[i].Unnormalised)
	}

	return peak, true
}

// GlobalMax reduces per-month maxima to the whole-dataset maximum.
func GlobalMax(maxima []float64) (float64, error) {
	if len(maxima) == 0 {
		return 0, ErrNoMaxima
	}

	peak := floats.Max(maxima)
	if math.IsInf(peak, 0) || math.IsNaN(peak) {
		return 0, fmt.Errorf("%w: reduced to %v", ErrNoMaxima, peak)
	}

	return peak, nil
}

// Normalise shifts every row so the global maximum sits at 0 dB.
func Normalise(rows []types.Row, globalMax float64) {
	for i := range rows {
		rows[i].Broadband = rows[i].Unnormalised - globalMax
	}
}
