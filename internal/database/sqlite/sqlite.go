package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bookhaven/bookhaven-api/internal/database"
	"github.com/bookhaven/bookhaven-api/internal/domain/model"
	_ "github.com/mattn/go-sqlite3"
)

// CacheStore persists the search cache and search stats in a plain SQLite
// database, separate from the bun-managed primary store.
type CacheStore struct {
	db *sql.DB
}

func NewCacheStore(dsn string) (*CacheStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	store := &CacheStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *CacheStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS search_cache (
		key TEXT PRIMARY KEY,
		results TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS search_stats (
		query TEXT PRIMARY KEY,
		hits INTEGER NOT NULL DEFAULT 0,
		last_searched_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *CacheStore) Close() error {
	return s.db.Close()
}

// Implement CacheRepository

func (s *CacheStore) GetEntry(ctx context.Context, key string) (*model.CacheEntry, error) {
	query := `SELECT key, results, created_at, expires_at FROM search_cache WHERE key = ?`

	entry := &model.CacheEntry{}
	var results string
	var createdAt, expiresAt int64
	err := s.db.QueryRowContext(ctx, query, key).Scan(&entry.Key, &results, &createdAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(results), &entry.Results); err != nil {
		return nil, fmt.Errorf("failed to decode cached results: %w", err)
	}
	entry.CreatedAt = time.Unix(createdAt, 0)
	entry.ExpiresAt = time.Unix(expiresAt, 0)
	return entry, nil
}

func (s *CacheStore) PutEntry(ctx context.Context, entry *model.CacheEntry) error {
	results, err := json.Marshal(entry.Results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	// Last write wins on concurrent puts for the same key.
	query := `INSERT INTO search_cache (key, results, created_at, expires_at) VALUES (?, ?, ?, ?)
	          ON CONFLICT (key) DO UPDATE SET results = excluded.results,
	          created_at = excluded.created_at, expires_at = excluded.expires_at`
	_, err = s.db.ExecContext(ctx, query, entry.Key, string(results), entry.CreatedAt.Unix(), entry.ExpiresAt.Unix())
	return err
}

// Implement StatsRepository

func (s *CacheStore) RecordSearch(ctx context.Context, query string) error {
	now := time.Now().Unix()
	stmt := `INSERT INTO search_stats (query, hits, last_searched_at) VALUES (?, 1, ?)
	         ON CONFLICT (query) DO UPDATE SET hits = hits + 1, last_searched_at = excluded.last_searched_at`
	_, err := s.db.ExecContext(ctx, stmt, query, now)
	return err
}

func (s *CacheStore) TopSearches(ctx context.Context, limit int) ([]model.SearchStat, error) {
	stmt := `SELECT query, hits, last_searched_at FROM search_stats ORDER BY hits DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, stmt, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []model.SearchStat
	for rows.Next() {
		var stat model.SearchStat
		var last int64
		if err := rows.Scan(&stat.Query, &stat.Hits, &last); err != nil {
			return nil, err
		}
		stat.LastSearchedAt = time.Unix(last, 0)
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}
