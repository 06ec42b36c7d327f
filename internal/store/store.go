package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// pragma is a connection setting and the value SQLite reports once applied.
type pragma struct {
	name     string
	value    string
	reported string
}

var pragmas = []pragma{
	{"journal_mode", "WAL", "wal"},
	{"synchronous", "NORMAL", "1"},
	{"busy_timeout", "5000", "5000"},
	{"foreign_keys", "ON", "1"},
}

// migrations[i] moves the schema from user_version i to i+1. Statements
// must be safe to rerun.
var migrations = []string{
	// v1: list the names of a triple without a table scan.
	`CREATE INDEX IF NOT EXISTS idx_names_cid ON names(cid)`,
}

// schemaVersion is the user_version of a fully migrated registry.
var schemaVersion = len(migrations)

// Store is a content-addressed registry of triples.
//
// The pool holds a single connection: SQLite admits one writer, and an
// in-memory database exists only on the connection that created it.
type Store struct {
	db *sql.DB
}

// Open creates or opens the registry at path, which may be ":memory:".
// Pragmas are applied and the schema migrated on every open.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.configure(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := s.checkPragmas(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) configure() error {
	for _, p := range pragmas {
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("pragma %s: %w", p.name, err)
		}
	}
	return nil
}

// migrate creates missing tables, then applies the migrations past the
// stored user_version, each in its own transaction.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	version, err := s.SchemaVersion()
	if err != nil {
		return err
	}
	for v := version; v < len(migrations); v++ {
		if err := s.applyMigration(v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) applyMigration(from int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("migrate to v%d: %w", from+1, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(migrations[from]); err != nil {
		return fmt.Errorf("migrate to v%d: %w", from+1, err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", from+1)); err != nil {
		return fmt.Errorf("migrate to v%d: %w", from+1, err)
	}
	return tx.Commit()
}

// SchemaVersion returns the registry's user_version.
func (s *Store) SchemaVersion() (int, error) {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("user_version: %w", err)
	}
	return version, nil
}

// checkPragmas reports the first pragma whose value differs from the one
// configure sets. journal_mode is skipped for in-memory databases, which
// report "memory".
func (s *Store) checkPragmas() error {
	for _, p := range pragmas {
		var got string
		if err := s.db.QueryRow("PRAGMA " + p.name).Scan(&got); err != nil {
			return fmt.Errorf("pragma %s: %w", p.name, err)
		}
		if p.name == "journal_mode" && got == "memory" {
			continue
		}
		if got != p.reported {
			return fmt.Errorf("pragma %s = %q, want %q", p.name, got, p.reported)
		}
	}
	return nil
}
