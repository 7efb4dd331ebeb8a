//nolint:staticcheck // too dumb on Db vs. DB
package types

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var ErrBand = errors.New("invalid band list")

// Band is one third-octave band column.
type Band struct {
	Name     string  // integer-rounded center frequency, used as the output column name
	CenterHz float64 // exact center frequency as found in the PAMGuide header
}

/*
Band Schema

PAMGuide exports one column per base-10 third-octave band, headed by the exact center
frequency (10^(k/10) Hz). Headers are matched by rounding to the nearest integer, which
also gives the shorter output column names.

| k  | Header            | Name  |
|----|-------------------|-------|
| 14 | 25.1188643150958  | 25    |
| 15 | 31.6227766016838  | 32    |
| 30 | 1000              | 1000  |
| 44 | 25118.8643150958  | 25119 |

The default schema spans k = 14..44 (31 bands). Other columns in the export, such as the
PAMGuide relative time column, are not part of the schema and are ignored.
*/

const (
	firstBandIndex = 14
	lastBandIndex  = 44
)

// Schema is the ordered list of band columns every table carries.
type Schema []Band

// DefaultSchema returns the 25 Hz to 25119 Hz third-octave bands.
func DefaultSchema() Schema {
	schema := make(Schema, 0, lastBandIndex-firstBandIndex+1)

	for k := firstBandIndex; k <= lastBandIndex; k++ {
		center := math.Pow(10, float64(k)/10)
		schema = append(schema, Band{Name: BandName(center), CenterHz: center})
	}

	return schema
}

// ParseSchema builds a schema from comma-separated center frequencies, in column order.
// Two frequencies rounding to the same name are rejected.
func ParseSchema(list string) (Schema, error) {
	var schema Schema

	for field := range strings.SplitSeq(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		hz, err := strconv.ParseFloat(field, 64)
		if err != nil || !(hz > 0) || math.IsInf(hz, 0) {
			return nil, fmt.Errorf("%w: %q is not a center frequency", ErrBand, field)
		}

		name := BandName(hz)
		if schema.Index(name) >= 0 {
			return nil, fmt.Errorf("%w: band %s listed twice", ErrBand, name)
		}

		schema = append(schema, Band{Name: name, CenterHz: hz})
	}

	if len(schema) == 0 {
		return nil, fmt.Errorf("%w: no bands", ErrBand)
	}

	return schema, nil
}

// BandName returns the column name of a band center frequency.
func BandName(centerHz float64) string {
	return strconv.Itoa(int(math.Round(centerHz)))
}

// Names returns the band column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, band := range s {
		names[i] = band.Name
	}

	return names
}

// Index returns the position of the named band, or -1.
func (s Schema) Index(name string) int {
	for i, band := range s {
		if band.Name == name {
			return i
		}
	}

	return -1
}

// Row is a single half-second measurement.
type Row struct {
	Timestamp time.Time
	TimeValid bool // false when the source filename did not carry a parseable start time
	Source    string
	Levels    []float64 // dB, one per band in schema order; NaN marks a missing value

	Unnormalised float64 // unnormalised_broadband_spl
	Broadband    float64 // broadband_spl
	Background   float64 // background_spl
	Loud         bool
	Short        bool // short_transient
}

// Table is the ordered set of rows for one month.
type Table struct {
	Month  string // month label, e.g. 2018_10
	Schema Schema
	Rows   []Row
}

// CleanStats reports what the cleaner removed.
type CleanStats struct {
	Input       int // rows before cleaning
	Bad         int // rows carrying a missing value or invalid timestamp
	Guarded     int // rows removed, bad rows plus their guard band
	InvalidTime int // rows dropped after sorting for an invalid timestamp
	Duplicates  int // rows dropped for a repeated timestamp
	OutOfMonth  int // rows dropped by month selection
	Retained    int
}

// RetainedPercent is the share of input rows that survived cleaning.
func (s CleanStats) RetainedPercent() float64 {
	if s.Input == 0 {
		return 0
	}

	return float64(s.Retained) / float64(s.Input) * 100
}

// Transient is one contiguous run of loud samples.
type Transient struct {
	Month         string    // YYYYMM, only set in the combined table
	Start         time.Time // first loud sample
	End           time.Time // last loud sample
	Duration      float64   // seconds, (End - Start) + sampling interval
	Samples       int
	Levels        []float64 // band levels averaged over the run
	PeakBroadband float64
	Short         bool // single sample with a quiet row on each side
}

// TransientResult contains the segmenter output for one table.
type TransientResult struct {
	Events   []Transient
	LoudRows int
	Capped   int // events discarded for exceeding the maximum duration
}

// DurationStats summarizes transient durations for one month.
type DurationStats struct {
	Count       int
	MinSec      float64
	MaxSec      float64
	MeanSec     float64
	StdDevSec   float64 // population standard deviation
	LongerCount int     // events longer than one sampling interval
	ShortCount  int     // events exactly one sampling interval long
}

// Histogram holds duration bin counts; Dividers has one more entry than Counts.
type Histogram struct {
	Dividers []float64
	Counts   []float64
}

// Gap is a stretch of time with no retained rows.
type Gap struct {
	Start       time.Time // last row before the gap
	End         time.Time // first row after the gap
	DurationSec float64   // missing time, End - Start less one sampling interval
}

// GapResult contains timestamp discontinuities found in a table.
type GapResult struct {
	Count      int
	LongestSec float64
	MissingSec float64
	Events     []Gap // longest first, capped
}

// MonthStatus is the outcome of processing one month.
type MonthStatus string

const (
	MonthOK     MonthStatus = "ok"
	MonthEmpty  MonthStatus = "empty"  // processed, but too few rows for a background window
	MonthFailed MonthStatus = "failed" // isolated failure, other months proceed
)

// MonthReport summarizes one month of a batch run.
type MonthReport struct {
	Month            string
	Status           MonthStatus
	Error            string
	Files            int
	InputRows        int
	Clean            CleanStats
	Gaps             GapResult
	MaxUnnormalised  float64
	GlobalMax        float64
	OutputRows       int
	LoudRows         int
	ShortTransients  int
	Transients       int
	CappedTransients int
	Durations        DurationStats
	PassOneMs        float64
	PassTwoMs        float64
}
