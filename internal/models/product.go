// Package models defines core data structures for products, queries, and search results.
package models

// Product is an immutable catalog entry. Attribute fields (Category, Color,
// Gender) are the ones personalization boosts match against.
type Product struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Category    string `json:"category" db:"category"`
	Gender      string `json:"gender" db:"gender"`
	Color       string `json:"color" db:"color"`
	Description string `json:"description,omitempty" db:"description"`
	ImageURL    string `json:"image_url,omitempty" db:"image_url"`
}

// PreferenceSnapshot is a read-only view of a user's stated preferences and
// favorites, captured once per ranking pass.
type PreferenceSnapshot struct {
	Colors      []string `json:"colors"`
	Styles      []string `json:"styles"`
	FavoriteIDs []string `json:"favorite_ids"`
}

// IsEmpty reports whether the snapshot carries no personalization signal.
func (p *PreferenceSnapshot) IsEmpty() bool {
	return p == nil || (len(p.Colors) == 0 && len(p.Styles) == 0 && len(p.FavoriteIDs) == 0)
}
