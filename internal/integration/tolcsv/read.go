// Package tolcsv reads PAMGuide third-octave exports and reads and writes the derived tables.
package tolcsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/hydrophone/internal/types"
)

var (
	ErrNotDirectory = errors.New("not a directory")
	ErrNoCSVFiles   = errors.New("no .csv files found")
	ErrSchema       = errors.New("header does not carry every band of the schema")
	ErrColumn       = errors.New("missing column")
)

// Month is one monthly folder of exports.
type Month struct {
	Label string // folder name, e.g. 2018_10
	Dir   string
}

// DiscoverMonths lists the month folders under root, sorted by name.
func DiscoverMonths(root string) ([]Month, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	var months []Month

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		months = append(months, Month{Label: entry.Name(), Dir: filepath.Join(root, entry.Name())})
	}

	return months, nil
}

// CSVFiles lists the .csv files directly inside dir, sorted by name.
func CSVFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%q: %w", dir, ErrNotDirectory)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%q: %w", dir, ErrNoCSVFiles)
	}

	slices.Sort(files)

	return files, nil
}

// ReadMonth concatenates every export of a month folder and returns the rows and the number
// of files read. Rows of each file stay contiguous and in file order; files are not in time
// order.
func ReadMonth(dir string, schema types.Schema) ([]types.Row, int, error) {
	files, err := CSVFiles(dir)
	if err != nil {
		return nil, 0, err
	}

	var rows []types.Row

	for _, path := range files {
		fileRows, err := ReadExport(path, schema)
		if err != nil {
			return nil, 0, err
		}

		rows = append(rows, fileRows...)
	}

	return rows, len(files), nil
}

// ReadExport reads one PAMGuide export. Band columns are matched on their rounded center
// frequency; any other column is ignored. Empty or unparseable cells read as NaN.
func ReadExport(path string, schema types.Schema) ([]types.Row, error) {
	file, err := os.Open(path) //nolint:gosec // CLI tool opens user-specified data files
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", fault.ErrReadFailure, path, err)
	}

	columns, err := bandColumns(header, schema, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	source := filepath.Base(path)

	var rows []types.Row

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", fault.ErrReadFailure, path, err)
		}

		rows = append(rows, types.Row{
			Source: source,
			Levels: parseLevels(record, columns),
		})
	}

	return rows, nil
}

// bandColumns maps each schema band to its column. Export headers carry exact center
// frequencies and are rounded; derived tables carry the band names already.
func bandColumns(header []string, schema types.Schema, rounded bool) ([]int, error) {
	columns := make([]int, len(schema))
	for i := range columns {
		columns[i] = -1
	}

	for col, name := range header {
		name = strings.TrimSpace(name)

		if rounded {
			hz, err := strconv.ParseFloat(name, 64)
			if err != nil {
				continue
			}

			name = types.BandName(hz)
		}

		if idx := schema.Index(name); idx >= 0 && columns[idx] < 0 {
			columns[idx] = col
		}
	}

	for i, col := range columns {
		if col < 0 {
			return nil, fmt.Errorf("%w: band %s", ErrSchema, schema[i].Name)
		}
	}

	return columns, nil
}

func parseLevels(record []string, columns []int) []float64 {
	levels := make([]float64, len(columns))

	for i, col := range columns {
		value, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
		if err != nil {
			value = math.NaN()
		}

		levels[i] = value
	}

	return levels
}

// ReadInterim reads a table written by WriteInterim.
func ReadInterim(path string, schema types.Schema) ([]types.Row, error) {
	file, err := os.Open(path) //nolint:gosec // path is built by the pipeline
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", fault.ErrReadFailure, path, err)
	}

	columns, err := bandColumns(header, schema, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	timeCol, err := columnIndex(header, colTimestamp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	splCol, err := columnIndex(header, colUnnormalised)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var rows []types.Row

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", fault.ErrReadFailure, path, err)
		}

		stamp, err := time.Parse(time.RFC3339Nano, record[timeCol])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", fault.ErrReadFailure, path, err)
		}

		spl, err := strconv.ParseFloat(record[splCol], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", fault.ErrReadFailure, path, err)
		}

		rows = append(rows, types.Row{
			Timestamp:    stamp,
			TimeValid:    true,
			Levels:       parseLevels(record, columns),
			Unnormalised: spl,
		})
	}

	return rows, nil
}

// ReadDurations reads the duration column of a transient table, and the month column when
// present.
func ReadDurations(path string) ([]float64, []string, error) {
	file, err := os.Open(path) //nolint:gosec // CLI tool opens user-specified data files
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", fault.ErrReadFailure, path, err)
	}

	durationCol, err := columnIndex(header, colDuration)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	monthCol, _ := columnIndex(header, colMonth)

	var (
		durations []float64
		months    []string
	)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %w", fault.ErrReadFailure, path, err)
		}

		duration, err := strconv.ParseFloat(record[durationCol], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %w", fault.ErrReadFailure, path, err)
		}

		durations = append(durations, duration)

		if monthCol >= 0 {
			months = append(months, record[monthCol])
		}
	}

	return durations, months, nil
}

func columnIndex(header []string, name string) (int, error) {
	for i, col := range header {
		if strings.TrimSpace(col) == name {
			return i, nil
		}
	}

	return -1, fmt.Errorf("%w: %s", ErrColumn, name)
}
