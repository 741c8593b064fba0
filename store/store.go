// Package store keeps extracted tables in a local SQLite database, one run
// per pipeline call.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/freelectron/degiro"
	"github.com/freelectron/degiro/date"
)

// ErrRunNotFound is returned by LoadRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Run describes a stored pipeline run.
type Run struct {
	ID         string
	Source     string
	Range      date.Range
	Rows       int
	FailedDays []date.Date
	CreatedAt  time.Time
}

// Store is a SQLite database of runs.
type Store struct {
	db *sql.DB
}

const migrationRuns = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	from_day    TEXT NOT NULL,
	to_day      TEXT NOT NULL,
	columns     TEXT NOT NULL,
	failed_days TEXT NOT NULL DEFAULT '[]',
	row_count   INTEGER NOT NULL,
	created_at  TEXT NOT NULL
)`

const migrationRows = `
CREATE TABLE IF NOT EXISTS run_rows (
	run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq      INTEGER NOT NULL,
	ts       TEXT NOT NULL,
	location TEXT NOT NULL,
	cells    TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
)`

const migrationIndexes = `CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source, created_at)`

// createdFormat keeps the nanoseconds of a creation time.
const createdFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Open opens or creates the database at path and runs the migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		migrationRuns,
		migrationRows,
		migrationIndexes,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing database: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// SaveRun stores t as a new run of source over r and returns its id.
func (s *Store) SaveRun(ctx context.Context, source string, r date.Range, t *degiro.Table, failed ...date.Date) (string, error) {
	columns, err := json.Marshal(t.Columns)
	if err != nil {
		return "", err
	}
	failedJSON, err := json.Marshal(failedOrEmpty(failed))
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, source, from_day, to_day, columns, failed_days, row_count, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, source, r.From.String(), r.To.String(), string(columns), string(failedJSON), t.Len(), time.Now().UTC().Format(createdFormat))
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_rows (run_id, seq, ts, location, cells) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing row insert: %w", err)
	}
	defer stmt.Close()
	for i, row := range t.Rows {
		cells, err := encodeCells(row.Values)
		if err != nil {
			return "", fmt.Errorf("row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, id, i, row.Time.Format(time.RFC3339Nano), row.Time.Location().String(), cells); err != nil {
			return "", fmt.Errorf("inserting row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

func failedOrEmpty(days []date.Date) []date.Date {
	if days == nil {
		return []date.Date{}
	}
	return days
}

// Runs returns every stored run, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, source, from_day, to_day, failed_days, row_count, created_at FROM runs ORDER BY rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Run returns the description of a stored run.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, source, from_day, to_day, failed_days, row_count, created_at FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run                         Run
		from, to, failed, createdAt string
	)
	if err := sc.Scan(&run.ID, &run.Source, &from, &to, &failed, &run.Rows, &createdAt); err != nil {
		return Run{}, err
	}
	var err error
	if run.Range.From, err = date.Parse(from); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	if run.Range.To, err = date.Parse(to); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(failed), &run.FailedDays); err != nil {
		return Run{}, fmt.Errorf("run %s: failed days: %w", run.ID, err)
	}
	if run.CreatedAt, err = time.Parse(createdFormat, createdAt); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	return run, nil
}

// LoadRun returns the table of a stored run.
func (s *Store) LoadRun(ctx context.Context, id string) (*degiro.Table, error) {
	var columns string
	err := s.db.QueryRowContext(ctx, `SELECT columns FROM runs WHERE id = ?`, id).Scan(&columns)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}

	t := new(degiro.Table)
	if err := json.Unmarshal([]byte(columns), &t.Columns); err != nil {
		return nil, fmt.Errorf("run %s: columns: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT ts, location, cells FROM run_rows WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("loading rows of run %s: %w", id, err)
	}
	defer rows.Close()

	locations := make(map[string]*time.Location)
	for rows.Next() {
		var ts, location, cells string
		if err := rows.Scan(&ts, &location, &cells); err != nil {
			return nil, err
		}
		loc, ok := locations[location]
		if !ok {
			if loc, err = time.LoadLocation(location); err != nil {
				return nil, fmt.Errorf("run %s: %w", id, err)
			}
			locations[location] = loc
		}
		stamp, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", id, err)
		}
		values, err := decodeCells(cells, loc)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", id, err)
		}
		t.Rows = append(t.Rows, degiro.Row{Time: stamp.In(loc), Values: values})
	}
	return t, rows.Err()
}
