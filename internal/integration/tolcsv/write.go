package tolcsv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/farcloser/hydrophone/internal/types"
)

const (
	colTimestamp    = "timestamp"
	colStart        = "start_timestamp"
	colEnd          = "end_timestamp"
	colUnnormalised = "unnormalised_broadband_spl"
	colBroadband    = "broadband_spl"
	colBackground   = "background_spl"
	colLoud         = "loud"
	colShort        = "short_transient"
	colPeak         = "peak_broadband_spl"
	colSamples      = "samples"
	colDuration     = "duration"
	colEventShort   = "short"
	colMonth        = "month"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// tableWriter owns a CSV file and flushes it on Close.
type tableWriter struct {
	file *os.File
	csv  *csv.Writer
	row  []string
}

func createTable(path string, header []string) (*tableWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // output tables are shared
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	file, err := os.Create(path) //nolint:gosec // path is built from user-specified output folder
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	writer := &tableWriter{file: file, csv: csv.NewWriter(file), row: make([]string, 0, len(header))}

	if err := writer.csv.Write(header); err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("writing %s: %w", path, err)
	}

	return writer, nil
}

func (w *tableWriter) Close() error {
	w.csv.Flush()

	if err := w.csv.Error(); err != nil {
		_ = w.file.Close()

		return fmt.Errorf("writing %s: %w", w.file.Name(), err)
	}

	return w.file.Close()
}

func appendLevels(row []string, levels []float64) []string {
	for _, level := range levels {
		row = append(row, formatFloat(level))
	}

	return row
}

// WriteInterim writes the pass-one table: timestamp, bands, unnormalised broadband SPL.
func WriteInterim(path string, rows []types.Row, schema types.Schema) error {
	header := append([]string{colTimestamp}, schema.Names()...)
	header = append(header, colUnnormalised)

	writer, err := createTable(path, header)
	if err != nil {
		return err
	}

	for i := range rows {
		row := append(writer.row[:0], formatTime(rows[i].Timestamp))
		row = appendLevels(row, rows[i].Levels)
		row = append(row, formatFloat(rows[i].Unnormalised))

		if err := writer.csv.Write(row); err != nil {
			_ = writer.Close()

			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	return writer.Close()
}

// WriteMonthly writes the fully processed month table.
func WriteMonthly(path string, table *types.Table) error {
	header := append([]string{colTimestamp}, table.Schema.Names()...)
	header = append(header, colUnnormalised, colBroadband, colBackground, colLoud, colShort)

	writer, err := createTable(path, header)
	if err != nil {
		return err
	}

	for i := range table.Rows {
		r := &table.Rows[i]

		row := append(writer.row[:0], formatTime(r.Timestamp))
		row = appendLevels(row, r.Levels)
		row = append(row,
			formatFloat(r.Unnormalised),
			formatFloat(r.Broadband),
			formatFloat(r.Background),
			strconv.FormatBool(r.Loud),
			strconv.FormatBool(r.Short),
		)

		if err := writer.csv.Write(row); err != nil {
			_ = writer.Close()

			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	return writer.Close()
}

// TransientWriter streams transient events into one table. With a month column it serves
// as the combined whole-period table.
type TransientWriter struct {
	*tableWriter

	withMonth bool
}

// CreateTransients opens a transient table for writing.
func CreateTransients(path string, schema types.Schema, withMonth bool) (*TransientWriter, error) {
	var header []string
	if withMonth {
		header = append(header, colMonth)
	}

	header = append(header, colStart, colEnd)
	header = append(header, schema.Names()...)
	header = append(header, colPeak, colSamples, colDuration, colEventShort)

	writer, err := createTable(path, header)
	if err != nil {
		return nil, err
	}

	return &TransientWriter{tableWriter: writer, withMonth: withMonth}, nil
}

// Write appends events.
func (w *TransientWriter) Write(events []types.Transient) error {
	for i := range events {
		event := &events[i]

		row := w.row[:0]
		if w.withMonth {
			row = append(row, event.Month)
		}

		row = append(row, formatTime(event.Start), formatTime(event.End))
		row = appendLevels(row, event.Levels)
		row = append(row,
			formatFloat(event.PeakBroadband),
			strconv.Itoa(event.Samples),
			formatFloat(event.Duration),
			strconv.FormatBool(event.Short),
		)

		if err := w.csv.Write(row); err != nil {
			return fmt.Errorf("writing %s: %w", w.file.Name(), err)
		}
	}

	return nil
}

// WholePeriodWriter streams the broadband and background SPL of every month into one table.
type WholePeriodWriter struct {
	*tableWriter
}

// CreateWholePeriod opens the whole-period SPL table for writing.
func CreateWholePeriod(path string) (*WholePeriodWriter, error) {
	writer, err := createTable(path, []string{colTimestamp, colBroadband, colBackground})
	if err != nil {
		return nil, err
	}

	return &WholePeriodWriter{tableWriter: writer}, nil
}

// Write appends rows.
func (w *WholePeriodWriter) Write(rows []types.Row) error {
	for i := range rows {
		row := append(w.row[:0], formatTime(rows[i].Timestamp), formatFloat(rows[i].Broadband), formatFloat(rows[i].Background))

		if err := w.csv.Write(row); err != nil {
			return fmt.Errorf("writing %s: %w", w.file.Name(), err)
		}
	}

	return nil
}
