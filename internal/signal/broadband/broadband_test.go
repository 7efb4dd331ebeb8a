package broadband

import (
	"errors"
	"math"
	"testing"

	"github.com/farcloser/hydrophone/internal/types"
)

func TestLevelSingleDominantBand(t *testing.T) {
	levels := []float64{-300, -300, 97.25, -300}

	if got := Level(levels, nil); math.Abs(got-97.25) > 1e-9 {
		t.Fatalf("expected 97.25, got %v", got)
	}
}

func TestLevelEqualBandsAddThreeDb(t *testing.T) {
	got := Level([]float64{60, 60}, make([]float64, 1))

	want := 60 + 10*math.Log10(2)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestLevelMatchesDirectSum(t *testing.T) {
	levels := []float64{55.2, 71.9, 63.4, 80.1, 49.0}

	var sum float64
	for _, x := range levels {
		sum += math.Pow(10, x/10)
	}

	if got, want := Level(levels, nil), 10*math.Log10(sum); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestComputeReturnsTableMax(t *testing.T) {
	rows := []types.Row{
		{Levels: []float64{70, 70}},
		{Levels: []float64{90, -300}},
		{Levels: []float64{50, 50}},
	}

	peak, ok := Compute(rows)
	if !ok {
		t.Fatal("expected a maximum for a non-empty table")
	}

	if math.Abs(peak-90) > 1e-9 || math.Abs(rows[1].Unnormalised-90) > 1e-9 {
		t.Fatalf("expected 90 dB peak, got %v", peak)
	}

	if _, ok := Compute(nil); ok {
		t.Fatal("expected no maximum for an empty table")
	}
}

func TestGlobalNormalisationUsesGlobalMax(t *testing.T) {
	monthA := []types.Row{{Unnormalised: 5}, {Unnormalised: 2}}
	monthB := []types.Row{{Unnormalised: 8}, {Unnormalised: 1}}

	globalMax, err := GlobalMax([]float64{5, 8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if globalMax != 8 {
		t.Fatalf("expected global max 8, got %v", globalMax)
	}

	Normalise(monthA, globalMax)
	Normalise(monthB, globalMax)

	if monthA[0].Broadband != -3 || monthA[1].Broadband != -6 {
		t.Fatalf("month A shifted by the wrong constant: %+v", monthA)
	}

	if monthB[0].Broadband != 0 || monthB[1].Broadband != -7 {
		t.Fatalf("month B shifted by the wrong constant: %+v", monthB)
	}
}

func TestGlobalMaxEmpty(t *testing.T) {
	if _, err := GlobalMax(nil); !errors.Is(err, ErrNoMaxima) {
		t.Fatalf("expected ErrNoMaxima, got %v", err)
	}
}
