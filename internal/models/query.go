package models

import "fmt"

// DefaultAlpha is the default text weight for multimodal fusion
// (0.7 means 70% text, 30% image).
const DefaultAlpha = 0.7

// SearchQuery represents a retrieval request. At least one of Text and Image
// must be set.
type SearchQuery struct {
	Text        string   `json:"text,omitempty"`
	Image       []byte   `json:"image,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	Alpha       *float64 `json:"alpha,omitempty"` // text weight in [0,1]; nil means DefaultAlpha
	Personalize bool     `json:"personalize,omitempty"`
	UserID      string   `json:"user_id,omitempty"`
	Answer      bool     `json:"answer,omitempty"` // generate a natural-language answer
	SessionID   string   `json:"session_id,omitempty"`
}

// AlphaOrDefault returns the fusion text weight; defaults to DefaultAlpha when unset.
func (q *SearchQuery) AlphaOrDefault() float64 {
	if q.Alpha != nil {
		return *q.Alpha
	}
	return DefaultAlpha
}

// Validate ensures the query has valid fields and sets defaults.
// Returns ErrInvalidQuery if neither text nor image is supplied or if
// limit/alpha are out of range; otherwise normalizes the limit.
func (q *SearchQuery) Validate() error {
	if q.Text == "" && len(q.Image) == 0 {
		return fmt.Errorf("%w: either text or image must be provided", ErrInvalidQuery)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidQuery, q.Limit)
	}
	if q.Limit == 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Alpha != nil && (*q.Alpha < 0 || *q.Alpha > 1) {
		return fmt.Errorf("%w: alpha must be in [0,1], got %f", ErrInvalidQuery, *q.Alpha)
	}
	if q.Personalize && q.UserID == "" {
		return fmt.Errorf("%w: personalize requires a user_id", ErrInvalidQuery)
	}
	return nil
}
