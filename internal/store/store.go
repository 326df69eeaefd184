// Package store persists download jobs in sqlite (default) or postgres.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver
	_ "modernc.org/sqlite"             // sqlite driver, no cgo
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id            TEXT PRIMARY KEY,
    bucket        TEXT NOT NULL,
    obj_key       TEXT NOT NULL,
    byte_range    TEXT NOT NULL DEFAULT '',
    part_number   INTEGER NOT NULL DEFAULT 0,
    dest          TEXT NOT NULL,
    status        TEXT NOT NULL,
    total_bytes   BIGINT NOT NULL DEFAULT 0,
    bytes_written BIGINT NOT NULL DEFAULT 0,
    error         TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMP NOT NULL,
    started_at    TIMESTAMP
);
`

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

type HistoryStore struct {
	db     *sql.DB
	driver Driver
}

// OpenSQLite opens (and creates, if needed) a sqlite-backed store at dbPath.
func OpenSQLite(dbPath string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	return newStore(db, DriverSQLite)
}

// OpenPostgres opens a postgres-backed store.
func OpenPostgres(dsn string) (*HistoryStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	return newStore(db, DriverPostgres)
}

func newStore(db *sql.DB, driver Driver) (*HistoryStore, error) {
	// Ping makes sure the DSN is actually usable before we hand the
	// store out.
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("could not create schema: %w", err)
	}

	return &HistoryStore{db: db, driver: driver}, nil
}

func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// rebind rewrites "?" placeholders to "$N" for postgres. sqlite queries
// pass through untouched.
func (s *HistoryStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
