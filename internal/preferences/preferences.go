// Package preferences stores per-user taste signals: declared color and
// style preferences, favorited products, and recent search history.
package preferences

import (
	"context"

	"github.com/hyperjump/mitate/internal/models"
)

// Store defines user preference persistence. Implementations must treat an
// unknown user as an empty profile, not an error.
type Store interface {
	GetPreferences(ctx context.Context, userID string) (*models.PreferenceSnapshot, error)
	SetPreferences(ctx context.Context, userID string, colors, styles []string) error
	AddFavorite(ctx context.Context, userID, productID string) error
	RemoveFavorite(ctx context.Context, userID, productID string) error
	RecordSearch(ctx context.Context, userID, query string) error
	GetRecentQueries(ctx context.Context, userID string, limit int) ([]string, error)
	Close() error
}
