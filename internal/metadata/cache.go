package metadata

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Cache is a time-bounded local store for raw upstream payloads.
// Uses SQLite with WAL mode for concurrent read access.
type Cache struct {
	db *sql.DB
}

// OpenCache creates or opens a SQLite cache at the given path.
// Applies required pragmas and the schema automatically; idempotent.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to cache database: %w", err)
	}

	// SQLite supports one writer at a time; keep a single connection to
	// avoid SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Put stores a payload for a source, replacing any previous one.
func (c *Cache) Put(source string, body []byte, fetchedAt time.Time) error {
	_, err := c.db.Exec(
		`INSERT INTO payloads (source, body, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(source) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at`,
		source, body, fetchedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store payload for %s: %w", source, err)
	}
	return nil
}

// Get returns the cached payload for a source if it was fetched within
// ttl of now. A missing or stale row reports ok=false, not an error.
func (c *Cache) Get(source string, ttl time.Duration, now time.Time) ([]byte, bool, error) {
	var body []byte
	var fetchedAt int64
	err := c.db.QueryRow(
		`SELECT body, fetched_at FROM payloads WHERE source = ?`, source,
	).Scan(&body, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read payload for %s: %w", source, err)
	}
	if now.Sub(time.Unix(fetchedAt, 0)) > ttl {
		return nil, false, nil
	}
	return body, true, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}
