package sviexport

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/svidx/svi-fetch/internal/svi"
)

// SQLiteSink appends every fetched Table to a local SQLite database,
// one row per (series, point), the way cc-backend's internal/repository
// wires sqlx against go-sqlite3. There is no schema migration: a
// single CREATE TABLE IF NOT EXISTS owns the whole lifecycle.
type SQLiteSink struct {
	db    *sqlx.DB
	table string
}

// NewSQLiteSink opens (creating if necessary) the SQLite database at
// path and ensures the export table exists.
func NewSQLiteSink(path, table string) (*SQLiteSink, error) {
	if table == "" {
		table = "svi_points"
	}

	db, err := sqlx.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("SVIEXPORT/SQLITE > open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		fetched_at INTEGER NOT NULL,
		series     TEXT NOT NULL,
		at         INTEGER NOT NULL,
		value      REAL NOT NULL,
		missing    INTEGER NOT NULL
	)`, table)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("SVIEXPORT/SQLITE > create table: %w", err)
	}

	return &SQLiteSink{db: db, table: table}, nil
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

type exportRow struct {
	FetchedAt int64   `db:"fetched_at"`
	Series    string  `db:"series"`
	At        int64   `db:"at"`
	Value     float64 `db:"value"`
	Missing   bool    `db:"missing"`
}

func (s *SQLiteSink) Write(ctx context.Context, fetchedAt int64, table svi.Table) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SVIEXPORT/SQLITE > begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert := fmt.Sprintf(`INSERT INTO %s (fetched_at, series, at, value, missing) VALUES (:fetched_at, :series, :at, :value, :missing)`, s.table)

	for key, series := range table {
		for _, p := range series.Points {
			row := exportRow{
				FetchedAt: fetchedAt,
				Series:    key,
				At:        p.At.Unix(),
				Value:     p.Value,
				Missing:   p.Missing,
			}
			if _, err := tx.NamedExecContext(ctx, insert, row); err != nil {
				return fmt.Errorf("SVIEXPORT/SQLITE > insert: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SVIEXPORT/SQLITE > commit: %w", err)
	}
	return nil
}
