package background

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/farcloser/hydrophone/internal/types"
)

func TestWindowRows(t *testing.T) {
	if got := WindowRows(10*time.Minute, 500*time.Millisecond); got != 1200 {
		t.Fatalf("expected 1200 rows, got %d", got)
	}

	if got := WindowRows(time.Minute, 0); got != 0 {
		t.Fatalf("expected 0 rows for a zero interval, got %d", got)
	}
}

func TestEstimateTrailingMean(t *testing.T) {
	const window = 7

	rows := make([]types.Row, 500)
	for i := range rows {
		rows[i].Broadband = math.Sin(float64(i)/5)*20 - 40 + float64(i%11)
	}

	broadband := make([]float64, len(rows))
	for i := range rows {
		broadband[i] = rows[i].Broadband
	}

	out, err := Estimate(rows, window)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(out) != len(rows)-window+1 {
		t.Fatalf("expected %d rows, got %d", len(rows)-window+1, len(out))
	}

	for j, row := range out {
		i := j + window - 1

		var sum float64
		for _, v := range broadband[i-window+1 : i+1] {
			sum += v
		}

		if want := sum / window; math.Abs(row.Background-want) > 1e-9 {
			t.Fatalf("row %d: expected %v, got %v", i, want, row.Background)
		}

		if row.Broadband != broadband[i] {
			t.Fatalf("row %d: output is not aligned with input", i)
		}
	}
}

func TestEstimateIsCausal(t *testing.T) {
	rows := make([]types.Row, 10)
	rows[9].Broadband = 1000

	out, err := Estimate(rows, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, row := range out[:len(out)-3] {
		if row.Background != 0 {
			t.Fatalf("future sample leaked into the background: %v", row.Background)
		}
	}
}

func TestEstimateWindowTooLong(t *testing.T) {
	rows := make([]types.Row, 10)

	out, err := Estimate(rows, 11)
	if !errors.Is(err, ErrWindowExceedsRows) {
		t.Fatalf("expected ErrWindowExceedsRows, got %v", err)
	}

	if len(out) != 0 {
		t.Fatalf("expected no rows, got %d", len(out))
	}

	out, err = Estimate(rows, 10)
	if err != nil || len(out) != 1 {
		t.Fatalf("a window equal to the table keeps one row, got %d, %v", len(out), err)
	}

	if _, err := Estimate(rows, 0); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}
