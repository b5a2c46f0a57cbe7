// Package sqlite provides SQLite-backed persistence for harvester
// metadata. The schema is tiny on purpose: the record payloads live in
// the write-ahead cache, only cross-run bookkeeping lands here.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/core/ports/driven"
)

// schema is applied at open; idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS watermarks (
	origin      TEXT NOT NULL,
	backend     TEXT NOT NULL,
	updated_on  INTEGER NOT NULL,
	PRIMARY KEY (origin, backend)
);
`

// Store is the SQLite-backed metadata store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a store at the specified data directory, creating the
// directory and database as needed.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "perceval.db")

	// WAL keeps readers usable while a harvest run is writing.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// WatermarkStore returns a WatermarkStore interface backed by this store.
func (s *Store) WatermarkStore() driven.WatermarkStore {
	return &watermarkStore{store: s}
}
