package transient

import (
	"math"
	"testing"
	"time"

	"github.com/farcloser/hydrophone/internal/signal/loud"
	"github.com/farcloser/hydrophone/internal/types"
)

var t0 = time.Date(2018, 11, 14, 6, 30, 0, 0, time.UTC)

func table(pattern []bool) []types.Row {
	rows := make([]types.Row, len(pattern))
	for i, loud := range pattern {
		rows[i] = types.Row{
			Timestamp: t0.Add(time.Duration(i) * 500 * time.Millisecond),
			TimeValid: true,
			Levels:    []float64{float64(i), 2 * float64(i)},
			Broadband: -float64(i),
			Loud:      loud,
		}
	}

	return rows
}

func TestSegmentThreeEvents(t *testing.T) {
	const (
		F = false
		T = true
	)

	rows := table([]bool{F, T, T, F, T, F, F, T, T, T})

	result := Segment(rows, DefaultOptions())

	if len(result.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(result.Events))
	}

	want := []struct {
		start    time.Time
		duration float64
		samples  int
		short    bool
	}{
		{t0.Add(500 * time.Millisecond), 1.0, 2, false},
		{t0.Add(2 * time.Second), 0.5, 1, true},
		{t0.Add(3500 * time.Millisecond), 1.5, 3, false},
	}

	for i, w := range want {
		got := result.Events[i]
		if !got.Start.Equal(w.start) {
			t.Fatalf("event %d: expected start %v, got %v", i, w.start, got.Start)
		}

		if got.Duration != w.duration || got.Samples != w.samples || got.Short != w.short {
			t.Fatalf("event %d: expected %v s / %d samples / short=%v, got %+v",
				i, w.duration, w.samples, w.short, got)
		}
	}

	if result.LoudRows != 6 {
		t.Fatalf("expected 6 loud rows, got %d", result.LoudRows)
	}
}

func TestSegmentEdgeSingletonsAreNotShort(t *testing.T) {
	const (
		F = false
		T = true
	)

	rows := table([]bool{T, F, F, T, F, F, T})
	loud.TagShort(rows)

	events := Segment(rows, DefaultOptions()).Events
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	for i, idx := range []int{0, 3, 6} {
		if events[i].Short != rows[idx].Short {
			t.Fatalf("event %d: short=%v disagrees with row %d short_transient=%v",
				i, events[i].Short, idx, rows[idx].Short)
		}
	}

	if events[0].Short || !events[1].Short || events[2].Short {
		t.Fatalf("expected only the middle event short, got %v %v %v",
			events[0].Short, events[1].Short, events[2].Short)
	}
}

func TestSegmentAveragesLevelsAndPeak(t *testing.T) {
	rows := table([]bool{false, true, true, true, false})

	events := Segment(rows, DefaultOptions()).Events
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	event := events[0]
	if event.Levels[0] != 2 || event.Levels[1] != 4 {
		t.Fatalf("expected mean levels [2 4], got %v", event.Levels)
	}

	if event.PeakBroadband != -1 {
		t.Fatalf("expected peak -1, got %v", event.PeakBroadband)
	}

	if !event.End.Equal(t0.Add(1500 * time.Millisecond)) {
		t.Fatalf("unexpected end %v", event.End)
	}
}

func TestSegmentNoLoudRows(t *testing.T) {
	result := Segment(table([]bool{false, false, false}), DefaultOptions())

	if result.Events != nil || result.LoudRows != 0 {
		t.Fatalf("expected no events, got %+v", result)
	}

	if result := Segment(nil, DefaultOptions()); len(result.Events) != 0 {
		t.Fatal("expected no events for an empty table")
	}
}

func TestSegmentAllLoud(t *testing.T) {
	events := Segment(table([]bool{true, true, true, true}), DefaultOptions()).Events

	if len(events) != 1 || events[0].Duration != 2.0 {
		t.Fatalf("expected a single 2 s event, got %+v", events)
	}
}

func TestSegmentMaxDuration(t *testing.T) {
	rows := table([]bool{true, true, true, true, false, true})

	opts := DefaultOptions()
	opts.MaxDuration = time.Second

	result := Segment(rows, opts)
	if result.Capped != 1 || len(result.Events) != 1 || result.Events[0].Duration != 0.5 {
		t.Fatalf("expected the 2 s event to be capped, got %+v", result)
	}
}

func TestSegmentAcrossCleaningGap(t *testing.T) {
	rows := table([]bool{true, true})
	rows[1].Timestamp = rows[1].Timestamp.Add(10 * time.Second)

	events := Segment(rows, DefaultOptions()).Events
	if len(events) != 1 || math.Abs(events[0].Duration-11) > 1e-9 {
		t.Fatalf("expected one 11 s event spanning the gap, got %+v", events)
	}
}

func TestDurations(t *testing.T) {
	events := Segment(table([]bool{true, false, true, true}), DefaultOptions()).Events

	got := Durations(events)
	if len(got) != 2 || got[0] != 0.5 || got[1] != 1.0 {
		t.Fatalf("unexpected durations %v", got)
	}
}
