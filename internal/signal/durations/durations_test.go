package durations

import (
	"errors"
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats"
)

func TestSummarize(t *testing.T) {
	stats := Summarize([]float64{0.5, 0.5, 1.5, 3.5}, 500*time.Millisecond)

	if stats.Count != 4 || stats.MinSec != 0.5 || stats.MaxSec != 3.5 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	if math.Abs(stats.MeanSec-1.5) > 1e-12 {
		t.Fatalf("expected mean 1.5, got %v", stats.MeanSec)
	}

	// Population deviation: sqrt((1 + 1 + 0 + 4) / 4).
	if math.Abs(stats.StdDevSec-math.Sqrt(1.5)) > 1e-12 {
		t.Fatalf("expected population std dev %v, got %v", math.Sqrt(1.5), stats.StdDevSec)
	}

	if stats.ShortCount != 2 || stats.LongerCount != 2 {
		t.Fatalf("expected 2 short and 2 longer, got %+v", stats)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if stats := Summarize(nil, 500*time.Millisecond); stats.Count != 0 || stats.MaxSec != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestHistogram(t *testing.T) {
	durations := []float64{4, 0.5, 1, 2, 3, 0.5}

	hist, err := Histogram(durations, HistogramOptions{Bins: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(hist.Dividers) != 3 || hist.Dividers[0] != 0.5 {
		t.Fatalf("unexpected dividers %v", hist.Dividers)
	}

	if floats.Sum(hist.Counts) != float64(len(durations)) {
		t.Fatalf("every duration must land in a bin, got %v", hist.Counts)
	}

	if hist.Counts[0] != 4 || hist.Counts[1] != 2 {
		t.Fatalf("expected counts [4 2], got %v", hist.Counts)
	}
}

func TestHistogramRange(t *testing.T) {
	durations := []float64{0.5, 10, 200, 400}

	hist, err := Histogram(durations, HistogramOptions{Bins: 3, MinDuration: 180})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if floats.Sum(hist.Counts) != 2 {
		t.Fatalf("expected 2 durations above 3 minutes, got %v", hist.Counts)
	}

	hist, err = Histogram([]float64{0.5, 0.5}, HistogramOptions{Bins: 4})
	if err != nil || hist.Counts[0] != 2 {
		t.Fatalf("identical durations go to the first bin, got %v, %v", hist.Counts, err)
	}

	if _, err := Histogram(durations, HistogramOptions{}); !errors.Is(err, ErrBins) {
		t.Fatalf("expected ErrBins, got %v", err)
	}
}
