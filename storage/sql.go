// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Dialect holds the bits of SQL that differ between the supported engines.
type Dialect struct {
	Name string

	// Driver is the database/sql driver name.
	Driver string

	// Schema creates the kv table when missing.
	Schema string

	// Placeholder renders the nth (1-based) bind parameter.
	Placeholder func(n int) string
}

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

var (
	DuckDB = Dialect{
		Name:   "duckdb",
		Driver: "duckdb",
		Schema: `
			CREATE TABLE IF NOT EXISTS kv (
				key VARCHAR PRIMARY KEY,
				value VARCHAR NOT NULL,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
		`,
		Placeholder: questionMark,
	}

	SQLite = Dialect{
		Name:   "sqlite",
		Driver: "sqlite",
		Schema: `
			CREATE TABLE IF NOT EXISTS kv (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
		`,
		Placeholder: questionMark,
	}

	Postgres = Dialect{
		Name:   "postgres",
		Driver: "postgres",
		Schema: `
			CREATE TABLE IF NOT EXISTS kv (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at TIMESTAMPTZ DEFAULT now()
			);
		`,
		Placeholder: dollar,
	}
)

// SQLStore keeps values in a kv table of a relational database.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect

	getQuery    string
	setQuery    string
	deleteQuery string
}

// OpenSQLStore opens dsn with the dialect's driver and ensures the schema
// exists. The driver must have been registered by the caller or by one of the
// Open*Store helpers.
func OpenSQLStore(dialect Dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", dialect.Name, err)
	}

	s := NewSQLStore(db, dialect)
	if err := s.CreateSchema(context.Background()); err != nil {
		return nil, errors.Join(err, db.Close())
	}

	return s, nil
}

// NewSQLStore wraps an already opened database. Call CreateSchema before use.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	p := dialect.Placeholder

	return &SQLStore{
		db:       db,
		dialect:  dialect,
		getQuery: `SELECT value FROM kv WHERE key = ` + p(1),
		setQuery: strings.Join([]string{
			`INSERT INTO kv (key, value, updated_at) VALUES (` + p(1) + `, ` + p(2) + `, CURRENT_TIMESTAMP)`,
			`ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		}, "\n"),
		deleteQuery: `DELETE FROM kv WHERE key = ` + p(1),
	}
}

// Dialect returns the dialect the store was created with.
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

// CreateSchema creates the kv table.
func (s *SQLStore) CreateSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.Schema); err != nil {
		return fmt.Errorf("creating kv schema: %w", err)
	}

	return nil
}

// Close releases the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string

	err := s.db.QueryRowContext(ctx, s.getQuery, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("reading %q: %w", key, err)
	}

	return []byte(value), nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.setQuery, key, string(value)); err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}

	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.deleteQuery, key); err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}

	return nil
}
