// Package sqlite persists transient events and month summaries in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // driver

	"github.com/farcloser/hydrophone/internal/types"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS months (
	month            TEXT PRIMARY KEY,
	status           TEXT NOT NULL,
	error            TEXT,
	input_rows       INTEGER,
	retained_rows    INTEGER,
	output_rows      INTEGER,
	max_unnormalised REAL,
	global_max       REAL,
	loud_rows        INTEGER,
	short_transients INTEGER,
	transients       INTEGER
);
CREATE TABLE IF NOT EXISTS transients (
	month              TEXT NOT NULL,
	start_timestamp    TEXT NOT NULL,
	end_timestamp      TEXT NOT NULL,
	duration           REAL NOT NULL,
	samples            INTEGER NOT NULL,
	peak_broadband_spl REAL,
	short              INTEGER NOT NULL,
	levels             TEXT,
	PRIMARY KEY (month, start_timestamp)
);
`

// Store is a SQLite transient sink.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("creating schema in %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveMonth replaces everything stored for the report's month.
func (s *Store) SaveMonth(ctx context.Context, report *types.MonthReport, events []types.Transient, schema types.Schema) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transients WHERE month = ?`, report.Month); err != nil {
		return fmt.Errorf("clearing transients for %s: %w", report.Month, err)
	}

	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO months
		(month, status, error, input_rows, retained_rows, output_rows, max_unnormalised, global_max,
		 loud_rows, short_transients, transients)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.Month, string(report.Status), report.Error, report.InputRows, report.Clean.Retained,
		report.OutputRows, report.MaxUnnormalised, report.GlobalMax, report.LoudRows,
		report.ShortTransients, report.Transients)
	if err != nil {
		return fmt.Errorf("saving month %s: %w", report.Month, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transients
		(month, start_timestamp, end_timestamp, duration, samples, peak_broadband_spl, short, levels)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing transient insert: %w", err)
	}
	defer stmt.Close()

	names := schema.Names()

	for i := range events {
		event := &events[i]

		levels := make(map[string]float64, len(names))
		for b, name := range names {
			if b < len(event.Levels) {
				levels[name] = event.Levels[b]
			}
		}

		encoded, err := json.Marshal(levels)
		if err != nil {
			return fmt.Errorf("encoding band levels: %w", err)
		}

		_, err = stmt.ExecContext(ctx,
			report.Month,
			event.Start.UTC().Format(time.RFC3339Nano),
			event.End.UTC().Format(time.RFC3339Nano),
			event.Duration,
			event.Samples,
			event.PeakBroadband,
			event.Short,
			string(encoded),
		)
		if err != nil {
			return fmt.Errorf("saving transient at %s: %w", event.Start, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing month %s: %w", report.Month, err)
	}

	return nil
}

// Durations returns the stored transient durations for a month in start order, or for every
// month when month is empty.
func (s *Store) Durations(ctx context.Context, month string) ([]float64, error) {
	query := `SELECT duration FROM transients ORDER BY month, start_timestamp`
	args := []any{}

	if month != "" {
		query = `SELECT duration FROM transients WHERE month = ? ORDER BY start_timestamp`
		args = append(args, month)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying durations: %w", err)
	}
	defer rows.Close()

	var durations []float64

	for rows.Next() {
		var duration float64
		if err := rows.Scan(&duration); err != nil {
			return nil, fmt.Errorf("reading duration: %w", err)
		}

		durations = append(durations, duration)
	}

	return durations, rows.Err()
}

// Months lists the stored month labels.
func (s *Store) Months(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT month FROM months ORDER BY month`)
	if err != nil {
		return nil, fmt.Errorf("querying months: %w", err)
	}
	defer rows.Close()

	var months []string

	for rows.Next() {
		var month string
		if err := rows.Scan(&month); err != nil {
			return nil, fmt.Errorf("reading month: %w", err)
		}

		months = append(months, month)
	}

	return months, rows.Err()
}
