package clean

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/farcloser/hydrophone/internal/types"
)

var t0 = time.Date(2018, 10, 3, 12, 0, 0, 0, time.UTC)

func series(n int) []types.Row {
	rows := make([]types.Row, n)
	for i := range rows {
		rows[i] = types.Row{
			Timestamp: t0.Add(time.Duration(i) * 500 * time.Millisecond),
			TimeValid: true,
			Levels:    []float64{80, 90},
		}
	}

	return rows
}

func TestCleanIsolatedBadRowInterior(t *testing.T) {
	rows := series(20)
	rows[10].Levels[1] = math.Inf(1)

	out, stats := Clean(rows, DefaultOptions())

	if len(out) != 15 {
		t.Fatalf("expected 15 rows, got %d", len(out))
	}

	if stats.Bad != 1 || stats.Guarded != 5 {
		t.Fatalf("expected 1 bad and 5 removed, got %+v", stats)
	}

	for _, row := range out {
		if i := int(row.Timestamp.Sub(t0) / (500 * time.Millisecond)); i >= 8 && i <= 12 {
			t.Fatalf("row %d should have been removed", i)
		}
	}
}

func TestCleanBadRowAtEdges(t *testing.T) {
	rows := series(10)
	rows[0].Levels[0] = math.NaN()
	rows[9].Levels[0] = math.Inf(-1)

	out, stats := Clean(rows, DefaultOptions())

	// 3 rows at each edge.
	if len(out) != 4 || stats.Guarded != 6 {
		t.Fatalf("expected 4 rows and 6 removed, got %d rows, %+v", len(out), stats)
	}
}

func TestCleanInvalidTimestampIsBad(t *testing.T) {
	rows := series(10)
	rows[5].TimeValid = false
	rows[5].Timestamp = time.Time{}

	out, stats := Clean(rows, DefaultOptions())

	if len(out) != 5 || stats.Bad != 1 {
		t.Fatalf("expected 5 rows and 1 bad, got %d, %+v", len(out), stats)
	}
}

func TestCleanSortsAndDeduplicates(t *testing.T) {
	rows := series(6)
	// Second file listed before the first.
	rows = append(rows[3:], rows[:3]...)
	rows = append(rows, rows[1])

	out, stats := Clean(rows, Options{})

	if stats.Duplicates != 1 {
		t.Fatalf("expected 1 duplicate, got %d", stats.Duplicates)
	}

	if len(out) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(out))
	}

	for i := 1; i < len(out); i++ {
		if !out[i].Timestamp.After(out[i-1].Timestamp) {
			t.Fatalf("rows not strictly increasing at %d", i)
		}
	}

	if stats.RetainedPercent() >= 100 {
		t.Fatalf("expected retention below 100%%, got %.2f", stats.RetainedPercent())
	}
}

func TestMonthBoundsAndSelect(t *testing.T) {
	start, end, err := MonthBounds("2018_10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !start.Equal(time.Date(2018, 10, 1, 0, 0, 0, 0, time.UTC)) ||
		!end.Equal(time.Date(2018, 11, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected bounds %v %v", start, end)
	}

	rows := []types.Row{
		{Timestamp: start.Add(-time.Second), TimeValid: true},
		{Timestamp: start, TimeValid: true},
		{Timestamp: end.Add(-time.Second), TimeValid: true},
		{Timestamp: end, TimeValid: true},
	}

	out, dropped := SelectMonth(rows, start, end)
	if len(out) != 2 || dropped != 2 {
		t.Fatalf("expected 2 kept and 2 dropped, got %d, %d", len(out), dropped)
	}

	if _, _, err := MonthBounds("october"); !errors.Is(err, ErrMonthLabel) {
		t.Fatalf("expected ErrMonthLabel, got %v", err)
	}
}
