// package repositories provides the SQLite persistence layer for cached datasets.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/devonwallerson/amlibrary-plays/internal/models"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
)

// CacheEntryRepository persists [models.CacheEntry] rows keyed by dataset name.
type CacheEntryRepository struct {
	db *sql.DB
}

// NewCacheEntryRepository creates a new [CacheEntryRepository] with the given database connection
func NewCacheEntryRepository(db *sql.DB) *CacheEntryRepository {
	return &CacheEntryRepository{db: db}
}

// Put inserts or replaces the entry for key.
func (r *CacheEntryRepository) Put(key string, payload []byte, writtenAt time.Time) error {
	if key == "" {
		return fmt.Errorf("%w: cache key", shared.ErrMissingArgument)
	}

	query := `
		INSERT INTO cache_entries (key, payload, written_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, written_at = excluded.written_at
	`

	if _, err := r.db.Exec(query, key, payload, writtenAt.UTC()); err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}

	return nil
}

// Get retrieves the entry for key, returning [shared.ErrCacheMiss] when absent.
func (r *CacheEntryRepository) Get(key string) (*models.CacheEntry, error) {
	query := `
		SELECT key, payload, written_at
		FROM cache_entries
		WHERE key = ?
	`

	var entry models.CacheEntry
	err := r.db.QueryRow(query, key).Scan(&entry.Key, &entry.Payload, &entry.WrittenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrCacheMiss, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entry: %w", err)
	}

	return &entry, nil
}

// List retrieves every entry ordered by key. Payloads are included.
func (r *CacheEntryRepository) List() ([]models.CacheEntry, error) {
	query := `
		SELECT key, payload, written_at
		FROM cache_entries
		ORDER BY key ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entries: %w", err)
	}
	defer rows.Close()

	var entries []models.CacheEntry
	for rows.Next() {
		var entry models.CacheEntry
		if err := rows.Scan(&entry.Key, &entry.Payload, &entry.WrittenAt); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// Delete removes the entries for keys. Missing keys are ignored.
func (r *CacheEntryRepository) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	query := fmt.Sprintf("DELETE FROM cache_entries WHERE key IN (%s)", placeholders)
	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to delete cache entries: %w", err)
	}

	return nil
}
