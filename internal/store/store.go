// Package store persists agents, channels, conversation turns, member
// memory and scheduled triggers in a single SQLite database.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup by id matches nothing.
var ErrNotFound = errors.New("store: not found")

// Store owns the database handle. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema plus best-effort column migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	s := &Store{db: db}
	s.migrate()
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle for callers that need raw queries (status CLI).
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate adds columns introduced after the initial schema. ALTER TABLE
// failures on already-present columns are expected and ignored.
func (s *Store) migrate() {
	alters := []string{
		`ALTER TABLE agents ADD COLUMN triggers_enabled BOOLEAN NOT NULL DEFAULT 1`,
		`ALTER TABLE agents ADD COLUMN max_triggers INTEGER NOT NULL DEFAULT 10`,
		`ALTER TABLE member_slots ADD COLUMN valid_from DATETIME`,
		`ALTER TABLE member_slots ADD COLUMN valid_until DATETIME`,
		`ALTER TABLE triggers ADD COLUMN created_via TEXT NOT NULL DEFAULT 'admin'`,
	}
	for _, stmt := range alters {
		if _, err := s.db.Exec(stmt); err != nil {
			if !strings.Contains(err.Error(), "duplicate column") {
				slog.Debug("migration statement skipped", "error", err)
			}
		}
	}
}
