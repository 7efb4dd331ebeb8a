package hydrophone

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"gopkg.in/ini.v1"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/hydrophone/internal/signal/background"
	"github.com/farcloser/hydrophone/internal/signal/shared"
	"github.com/farcloser/hydrophone/internal/types"
)

/*
Usage:

opts := hydrophone.DefaultOptions()
opts.OutDir = "processed"
result, err := hydrophone.Process(ctx, "raw", opts)

// Settings from a file, CLI flags applied afterwards
opts := hydrophone.DefaultOptions()
if err := hydrophone.LoadConfig("hydrophone.ini", &opts); err != nil {
    return err
}

// Persist transients
store, err := sqlite.Open(ctx, "transients.db")
opts.Store = store

for _, month := range result.Months {
    fmt.Printf("%s: %d transients\n", month.Month, month.Transients)
}
*/

// TransientStore receives each processed month.
type TransientStore interface {
	SaveMonth(ctx context.Context, report *types.MonthReport, events []types.Transient, schema types.Schema) error
}

// Options configures a run. It is read-only once Process starts.
type Options struct {
	Interval             time.Duration // sampling interval between rows of one file (default 500ms)
	BackgroundWindow     time.Duration // trailing moving average span (default 10m)
	ThresholdDb          float64       // loud when broadband exceeds background by more than this (default 10)
	GuardRows            int           // rows removed on each side of a bad row (default 2)
	MaxTransientDuration time.Duration // discard longer transients; 0 disables the cap
	Schema               types.Schema

	Workers     int  // concurrent months in the first pass (default: NumCPU)
	SelectMonth bool // drop rows falling outside the month named by the folder
	OutDir      string

	Store  TransientStore // optional
	Logger *slog.Logger   // default slog.Default()
}

// DefaultOptions returns the standard settings for half-second TOL exports.
func DefaultOptions() Options {
	return Options{
		Interval:         shared.SamplingInterval,
		BackgroundWindow: shared.BackgroundWindow,
		ThresholdDb:      shared.LoudThresholdDb,
		GuardRows:        shared.GuardRows,
		Schema:           types.DefaultSchema(),
		Workers:          runtime.NumCPU(),
		SelectMonth:      true,
		OutDir:           ".",
	}
}

// LoadConfig overlays the keys found in an INI file onto opts. Keys are read from the
// default section; absent keys leave opts untouched.
//
//	interval = 500ms
//	background_window = 10m
//	threshold_db = 10
//	guard_rows = 2
//	max_transient_duration = 0
//	workers = 4
//	select_month = true
//	out = processed
//	bands = 25.1188643150958,31.6227766016838,39.8107170553497
func LoadConfig(path string, opts *Options) error {
	cfg, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	section := cfg.Section("")

	durations := map[string]*time.Duration{
		"interval":               &opts.Interval,
		"background_window":      &opts.BackgroundWindow,
		"max_transient_duration": &opts.MaxTransientDuration,
	}

	for key, target := range durations {
		if !section.HasKey(key) {
			continue
		}

		value, err := section.Key(key).Duration()
		if err != nil {
			return fmt.Errorf("%w: %s: %w", errConfigValue, key, err)
		}

		*target = value
	}

	if section.HasKey("threshold_db") {
		if opts.ThresholdDb, err = section.Key("threshold_db").Float64(); err != nil {
			return fmt.Errorf("%w: threshold_db: %w", errConfigValue, err)
		}
	}

	if section.HasKey("guard_rows") {
		if opts.GuardRows, err = section.Key("guard_rows").Int(); err != nil {
			return fmt.Errorf("%w: guard_rows: %w", errConfigValue, err)
		}
	}

	if section.HasKey("workers") {
		if opts.Workers, err = section.Key("workers").Int(); err != nil {
			return fmt.Errorf("%w: workers: %w", errConfigValue, err)
		}
	}

	if section.HasKey("select_month") {
		if opts.SelectMonth, err = section.Key("select_month").Bool(); err != nil {
			return fmt.Errorf("%w: select_month: %w", errConfigValue, err)
		}
	}

	if v := section.Key("out").String(); len(v) > 0 {
		opts.OutDir = v
	}

	if section.HasKey("bands") {
		if opts.Schema, err = types.ParseSchema(section.Key("bands").String()); err != nil {
			return fmt.Errorf("%w: bands: %w", errConfigValue, err)
		}
	}

	return nil
}

// Validate rejects settings no month could be processed with.
func (o *Options) Validate() error {
	interval := o.Interval
	if interval <= 0 {
		interval = shared.SamplingInterval
	}

	if o.BackgroundWindow > 0 && background.WindowRows(o.BackgroundWindow, interval) < 1 {
		return fmt.Errorf("%w: background window %s is shorter than the %s interval",
			errConfigValue, o.BackgroundWindow, interval)
	}

	return nil
}

func applyDefaults(opts *Options) {
	defaults := DefaultOptions()

	if opts.Interval <= 0 {
		opts.Interval = defaults.Interval
	}

	if opts.BackgroundWindow <= 0 {
		opts.BackgroundWindow = defaults.BackgroundWindow
	}

	if len(opts.Schema) == 0 {
		opts.Schema = defaults.Schema
	}

	if opts.GuardRows < 0 {
		opts.GuardRows = 0
	}

	opts.Workers = max(opts.Workers, 1)

	if opts.OutDir == "" {
		opts.OutDir = defaults.OutDir
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
}
