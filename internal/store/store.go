// Package store persists recent searches and favorites in SQLite, keyed by
// the place identity key.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vashkevichs/citypulse/internal/place"
)

// recentLimit caps how many recent searches are listed.
const recentLimit = 10

// timeNow returns the current time (can be swapped in tests).
var timeNow = time.Now

// RecentSearch is one deduplicated search-history record.
type RecentSearch struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Country     string    `json:"country"`
	IdentityKey string    `json:"identityKey"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	IsFavorite  bool      `json:"isFavorite"`
}

// Favorite is one favorited place.
type Favorite struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Country     string    `json:"country"`
	IdentityKey string    `json:"identityKey"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store wraps the SQLite database holding both collections.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the pragmas
// needed for concurrent use.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables if they do not exist. Both collections
// are uniquely keyed by the identity key; that constraint is what makes
// the upsert and toggle operations atomic.
func (s *Store) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS recent_searches (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		country TEXT NOT NULL,
		identity_key TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_recent_searches_updated ON recent_searches(updated_at);

	CREATE TABLE IF NOT EXISTS favorites (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		country TEXT NOT NULL,
		identity_key TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_favorites_created ON favorites(created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// RecordSearch upserts a history record for the place. First search of a
// place inserts a row; every later search of the same identity refreshes
// the display fields and updated_at in place. The insert-or-update is a
// single statement resolved by the UNIQUE(identity_key) constraint, so
// concurrent calls for the same place never duplicate rows.
func (s *Store) RecordSearch(ctx context.Context, name, country string) error {
	now := timeNow().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recent_searches (id, name, country, identity_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity_key) DO UPDATE SET
			name = excluded.name,
			country = excluded.country,
			updated_at = excluded.updated_at`,
		uuid.New().String(), name, country, place.Key(name, country), now, now,
	)
	if err != nil {
		return fmt.Errorf("recording search: %w", err)
	}
	return nil
}

// ListRecent returns the most recently updated searches, newest first,
// capped at recentLimit. Favorite flags are resolved with one batched
// membership query, not per record.
func (s *Store) ListRecent(ctx context.Context) ([]RecentSearch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, country, identity_key, created_at, updated_at
		FROM recent_searches
		ORDER BY updated_at DESC
		LIMIT ?`, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("listing recent searches: %w", err)
	}
	defer rows.Close()

	var records []RecentSearch
	for rows.Next() {
		var r RecentSearch
		if err := rows.Scan(&r.ID, &r.Name, &r.Country, &r.IdentityKey, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning recent search: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return records, nil
	}

	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = r.IdentityKey
	}
	favorites, err := s.favoriteSet(ctx, keys)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].IsFavorite = favorites[records[i].IdentityKey]
	}

	return records, nil
}

// favoriteSet returns which of the given identity keys are favorited.
func (s *Store) favoriteSet(ctx context.Context, keys []string) (map[string]bool, error) {
	placeholders := strings.Repeat("?,", len(keys))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT identity_key FROM favorites WHERE identity_key IN (%s)", placeholders),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("checking favorite membership: %w", err)
	}
	defer rows.Close()

	set := make(map[string]bool, len(keys))
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		set[key] = true
	}
	return set, rows.Err()
}

// ClearRecent deletes all recent searches. Favorites are untouched.
func (s *Store) ClearRecent(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM recent_searches"); err != nil {
		return fmt.Errorf("clearing recent searches: %w", err)
	}
	return nil
}

// ToggleFavorite flips the favorite state for the place and reports the
// resulting state. Delete-else-insert runs inside one transaction so
// repeated calls strictly alternate even under concurrency.
func (s *Store) ToggleFavorite(ctx context.Context, name, country string) (string, bool, error) {
	key := place.Key(name, country)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("starting toggle transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM favorites WHERE identity_key = ?", key)
	if err != nil {
		return "", false, fmt.Errorf("removing favorite: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return "", false, err
	}

	favorite := false
	if deleted == 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO favorites (id, name, country, identity_key, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			uuid.New().String(), name, country, key, timeNow().UTC(),
		)
		if err != nil {
			return "", false, fmt.Errorf("adding favorite: %w", err)
		}
		favorite = true
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("committing toggle: %w", err)
	}
	return key, favorite, nil
}

// IsFavorite reports whether the identity key is currently favorited.
func (s *Store) IsFavorite(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM favorites WHERE identity_key = ?", key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking favorite: %w", err)
	}
	return true, nil
}

// ListFavorites returns all favorites, newest first.
func (s *Store) ListFavorites(ctx context.Context) ([]Favorite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, country, identity_key, created_at
		FROM favorites
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	defer rows.Close()

	var favorites []Favorite
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.ID, &f.Name, &f.Country, &f.IdentityKey, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning favorite: %w", err)
		}
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}
