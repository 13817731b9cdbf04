package preferences

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/mitate/internal/models"
)

const preferenceSchema = `
CREATE TABLE IF NOT EXISTS user_preferences (
	user_id TEXT PRIMARY KEY,
	colors TEXT NOT NULL DEFAULT '',
	styles TEXT NOT NULL DEFAULT '',
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS user_favorites (
	user_id TEXT NOT NULL,
	product_id TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, product_id)
);
CREATE TABLE IF NOT EXISTS search_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	query TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_history_user ON search_history(user_id, id DESC);
`

// SQLiteStore persists user preferences in SQLite. It shares the database
// handle opened by the catalog store.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore ensures the preference schema on an already-open database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(preferenceSchema); err != nil {
		return nil, fmt.Errorf("init preferences schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetPreferences(ctx context.Context, userID string) (*models.PreferenceSnapshot, error) {
	snap := &models.PreferenceSnapshot{}

	var colors, styles string
	err := s.db.QueryRowContext(ctx,
		`SELECT colors, styles FROM user_preferences WHERE user_id = ?`, userID,
	).Scan(&colors, &styles)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("get preferences for %s: %w", userID, err)
	}
	snap.Colors = splitList(colors)
	snap.Styles = splitList(styles)

	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id FROM user_favorites WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("get favorites for %s: %w", userID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		snap.FavoriteIDs = append(snap.FavoriteIDs, id)
	}
	return snap, rows.Err()
}

func (s *SQLiteStore) SetPreferences(ctx context.Context, userID string, colors, styles []string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, colors, styles, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			colors = excluded.colors,
			styles = excluded.styles,
			updated_at = excluded.updated_at
	`, userID, joinList(colors), joinList(styles), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("set preferences for %s: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) AddFavorite(ctx context.Context, userID, productID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_favorites (user_id, product_id, created_at)
		VALUES (?, ?, ?)
	`, userID, productID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RemoveFavorite(ctx context.Context, userID, productID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_favorites WHERE user_id = ? AND product_id = ?`, userID, productID)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordSearch(ctx context.Context, userID, query string) error {
	if userID == "" || query == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_history (user_id, query, created_at) VALUES (?, ?, ?)
	`, userID, query, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("record search: %w", err)
	}
	return nil
}

// GetRecentQueries returns the user's most recent distinct queries, newest
// first.
func (s *SQLiteStore) GetRecentQueries(ctx context.Context, userID string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT query FROM search_history
		WHERE user_id = ?
		GROUP BY query
		ORDER BY MAX(id) DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent queries: %w", err)
	}
	defer rows.Close()

	var queries []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan query: %w", err)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// Close is a no-op: the shared database handle is owned by the catalog store.
func (s *SQLiteStore) Close() error {
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinList(items []string) string {
	return strings.Join(items, ",")
}
