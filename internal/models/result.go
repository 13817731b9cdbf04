package models

// Modality identifies the query input channel a score came from.
type Modality string

const (
	// ModalityText marks a hit found via the text index.
	ModalityText Modality = "text"
	// ModalityImage marks a hit found via the image index.
	ModalityImage Modality = "image"
	// ModalityBoth marks a fused hit present in both candidate sets.
	ModalityBoth Modality = "both"
)

// Candidate is a raw scored hit from one vector index. Score is similarity
// rescaled to [0,1]; Product is the catalog entry, resolved at retrieval time.
type Candidate struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Modality Modality `json:"modality"`
	Product  *Product `json:"product,omitempty"`
}

// FusedResult is a candidate after weighted multimodal fusion.
// Score is deterministic given the same candidate inputs and alpha.
type FusedResult struct {
	ID         string   `json:"id"`
	Score      float64  `json:"score"`
	TextScore  float64  `json:"text_score"`
	ImageScore float64  `json:"image_score"`
	Source     Modality `json:"source"`
	Product    *Product `json:"product,omitempty"`
}

// BoostBreakdown records which personalization boosts applied to a result.
type BoostBreakdown struct {
	Favorite float64 `json:"favorite,omitempty"`
	Color    float64 `json:"color,omitempty"`
	Style    float64 `json:"style,omitempty"`
}

// Total returns the summed boost contribution.
func (b BoostBreakdown) Total() float64 {
	return b.Favorite + b.Color + b.Style
}

// PersonalizedResult is a fused result after personalization boosting.
// PersonalizedScore >= Score always holds (boosts are non-negative) and
// PersonalizedScore is clamped to [0,1].
type PersonalizedResult struct {
	FusedResult
	PersonalizedScore float64        `json:"personalized_score"`
	IsFavorite        bool           `json:"is_favorite"`
	Boosts            BoostBreakdown `json:"boosts"`
}

// SearchResponse is the caller-facing result of one retrieval pass.
type SearchResponse struct {
	Results      []*PersonalizedResult `json:"results"`
	Total        int                   `json:"total"`
	Query        string                `json:"query,omitempty"`
	Personalized bool                  `json:"personalized"`
	// Partial is set when one modality's index was unavailable and the
	// response degraded to single-modality retrieval.
	Partial   bool   `json:"partial,omitempty"`
	Answer    string `json:"answer,omitempty"`
	Cached    bool   `json:"cached,omitempty"`
	QueryTime int64  `json:"query_time_ms"`
}

// RecommendationResult is one item from a recommendation strategy.
type RecommendationResult struct {
	Product  *Product `json:"product"`
	Score    float64  `json:"score"`
	Strategy string   `json:"strategy"` // "favorites", "history", "preferences", or "combined"
}

// Recommendations groups per-strategy recommendation lists with the
// weighted combination.
type Recommendations struct {
	FromFavorites   []*RecommendationResult `json:"from_favorites"`
	FromHistory     []*RecommendationResult `json:"from_history"`
	FromPreferences []*RecommendationResult `json:"from_preferences"`
	Combined        []*RecommendationResult `json:"combined"`
}
