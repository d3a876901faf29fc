// Package cache provides a local SQLite cache of backend query results so
// repeated report runs and publish fan-outs do not re-query the backend.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/blackwell-systems/brewmetrics/internal/influx"
)

// Cache stores query results keyed by the query shape.
type Cache struct {
	db *sql.DB
}

// New creates a Cache backed by the database at dbPath.
// Use ":memory:" for in-memory databases (useful for testing).
func New(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite only allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	c := &Cache{db: db}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS query_results (
    key TEXT PRIMARY KEY,
    rows TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_query_results_created ON query_results(created_at);
`

func (c *Cache) createSchema() error {
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create cache schema: %w", err)
	}
	return nil
}

// Key derives a stable cache key from the backend, category, and options.
func Key(backend string, cat influx.Category, opts influx.QueryOptions) string {
	parts := []string{
		backend,
		cat.Name,
		fmt.Sprintf("days=%d", opts.Days),
		"name=" + opts.Name,
		fmt.Sprintf("core=%t", opts.CoreOnly),
		"excl=" + strings.Join(opts.ExcludeVersions, ","),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached rows for key if they are younger than ttl.
// The second return value is false on a miss or an expired entry.
func (c *Cache) Get(key string, ttl time.Duration) ([]influx.Row, bool, error) {
	var (
		rowsJSON  string
		createdAt string
	)
	err := c.db.QueryRow(
		`SELECT rows, created_at FROM query_results WHERE key = ?`, key,
	).Scan(&rowsJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	created, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse cache timestamp: %w", err)
	}
	if time.Since(created) > ttl {
		return nil, false, nil
	}

	var rows []influx.Row
	if err := json.Unmarshal([]byte(rowsJSON), &rows); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached rows: %w", err)
	}
	return rows, true, nil
}

// Put stores rows under key, replacing any previous entry.
func (c *Cache) Put(key string, rows []influx.Row) error {
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}

	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO query_results (key, rows, created_at) VALUES (?, ?, ?)`,
		key, string(rowsJSON), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Prune removes entries older than ttl and returns how many were deleted.
func (c *Cache) Prune(ttl time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-ttl).Format(time.RFC3339)
	result, err := c.db.Exec(`DELETE FROM query_results WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}
	return n, nil
}
