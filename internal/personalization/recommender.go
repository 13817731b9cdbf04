package personalization

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/mitate/internal/catalog"
	"github.com/hyperjump/mitate/internal/config"
	"github.com/hyperjump/mitate/internal/models"
	"github.com/hyperjump/mitate/internal/preferences"
	"github.com/hyperjump/mitate/internal/vector"
	"github.com/hyperjump/mitate/pkg/utils"
)

type textEncoder interface {
	EncodeText(ctx context.Context, text string) ([]float32, error)
}

// Recommender builds product recommendations from three strategies:
// similarity to favorited products, similarity to recent search queries,
// and similarity to the declared color/style preferences. The combined list
// is a weighted merge of the three.
type Recommender struct {
	cfg     config.PersonalizationConfig
	catalog *catalog.Catalog
	index   vector.Index
	encoder textEncoder
	prefs   preferences.Store
	logger  *zap.Logger
}

func NewRecommender(cfg config.PersonalizationConfig, cat *catalog.Catalog, index vector.Index, encoder textEncoder, prefs preferences.Store, logger *zap.Logger) *Recommender {
	return &Recommender{
		cfg:     cfg,
		catalog: cat,
		index:   index,
		encoder: encoder,
		prefs:   prefs,
		logger:  logger,
	}
}

// Recommend returns per-strategy recommendation lists plus their weighted
// combination, each capped at limit. A strategy that fails or has no signal
// for this user comes back empty; only a preference store failure is fatal.
func (r *Recommender) Recommend(ctx context.Context, userID string, limit int) (*models.Recommendations, error) {
	snap, err := r.prefs.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	recs := &models.Recommendations{
		FromFavorites:   r.fromFavorites(ctx, snap, limit),
		FromHistory:     r.fromHistory(ctx, userID, limit),
		FromPreferences: r.fromPreferences(ctx, snap, limit),
	}
	recs.Combined = r.combine(recs, limit)
	return recs, nil
}

func (r *Recommender) fromFavorites(ctx context.Context, snap *models.PreferenceSnapshot, limit int) []*models.RecommendationResult {
	if len(snap.FavoriteIDs) == 0 {
		return nil
	}
	exclude := make(map[string]bool, len(snap.FavoriteIDs))
	vectors := make([][]float32, 0, len(snap.FavoriteIDs))
	for _, id := range snap.FavoriteIDs {
		exclude[id] = true
		p, ok := r.catalog.Get(id)
		if !ok {
			continue
		}
		vec, err := r.encoder.EncodeText(ctx, metadataText(p))
		if err != nil {
			r.logger.Warn("recommendation encoding failed",
				zap.String("strategy", "favorites"), zap.Error(err))
			continue
		}
		vectors = append(vectors, vec)
	}
	if len(vectors) == 0 {
		return nil
	}

	// One taste vector per user: the normalized centroid of the favorites.
	centroid := utils.Mean(vectors)
	utils.NormalizeL2(centroid)

	scores := make(map[string]float64)
	r.search(ctx, centroid, limit, exclude, scores, "favorites")
	return r.collect(scores, limit, "favorites")
}

func (r *Recommender) fromHistory(ctx context.Context, userID string, limit int) []*models.RecommendationResult {
	queries, err := r.prefs.GetRecentQueries(ctx, userID, r.cfg.HistoryDepth)
	if err != nil {
		r.logger.Warn("history recommendations unavailable", zap.Error(err))
		return nil
	}
	if len(queries) == 0 {
		return nil
	}
	scores := make(map[string]float64)
	for _, q := range queries {
		r.accumulate(ctx, q, limit, nil, scores, "history")
	}
	return r.collect(scores, limit, "history")
}

func (r *Recommender) fromPreferences(ctx context.Context, snap *models.PreferenceSnapshot, limit int) []*models.RecommendationResult {
	query := strings.Join(append(append([]string(nil), snap.Colors...), snap.Styles...), " ")
	if query == "" {
		return nil
	}
	scores := make(map[string]float64)
	r.accumulate(ctx, query, limit, nil, scores, "preferences")
	return r.collect(scores, limit, "preferences")
}

// accumulate encodes text, searches the index and folds rescaled scores into
// the score map, keeping the maximum per product.
func (r *Recommender) accumulate(ctx context.Context, text string, limit int, exclude map[string]bool, scores map[string]float64, strategy string) {
	vec, err := r.encoder.EncodeText(ctx, text)
	if err != nil {
		r.logger.Warn("recommendation encoding failed",
			zap.String("strategy", strategy), zap.Error(err))
		return
	}
	r.search(ctx, vec, limit, exclude, scores, strategy)
}

// search folds rescaled hits for vec into the score map, keeping the
// maximum per product and skipping excluded ids.
func (r *Recommender) search(ctx context.Context, vec []float32, limit int, exclude map[string]bool, scores map[string]float64, strategy string) {
	hits, err := r.index.Search(ctx, vec, limit+len(exclude))
	if err != nil {
		r.logger.Warn("recommendation search failed",
			zap.String("strategy", strategy), zap.Error(err))
		return
	}
	for _, h := range hits {
		if exclude[h.ID] {
			continue
		}
		score := vector.RescaleScore(h.Score)
		if score > scores[h.ID] {
			scores[h.ID] = score
		}
	}
}

func (r *Recommender) collect(scores map[string]float64, limit int, strategy string) []*models.RecommendationResult {
	out := make([]*models.RecommendationResult, 0, len(scores))
	for id, score := range scores {
		p, ok := r.catalog.Get(id)
		if !ok {
			continue
		}
		out = append(out, &models.RecommendationResult{Product: p, Score: score, Strategy: strategy})
	}
	sortRecommendations(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// combine merges the strategies with the configured weights. A product
// recommended by several strategies accumulates each contribution.
func (r *Recommender) combine(recs *models.Recommendations, limit int) []*models.RecommendationResult {
	weights := []struct {
		list   []*models.RecommendationResult
		weight float64
	}{
		{recs.FromFavorites, r.cfg.FavoritesWeight},
		{recs.FromHistory, r.cfg.HistoryWeight},
		{recs.FromPreferences, r.cfg.PreferencesWeight},
	}

	scores := make(map[string]float64)
	products := make(map[string]*models.Product)
	for _, w := range weights {
		for _, rec := range w.list {
			scores[rec.Product.ID] += w.weight * rec.Score
			products[rec.Product.ID] = rec.Product
		}
	}

	out := make([]*models.RecommendationResult, 0, len(scores))
	for id, score := range scores {
		out = append(out, &models.RecommendationResult{Product: products[id], Score: score, Strategy: "combined"})
	}
	sortRecommendations(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortRecommendations(recs []*models.RecommendationResult) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].Product.ID < recs[j].Product.ID
	})
}

// metadataText flattens product attributes into the text used for
// similarity encoding.
func metadataText(p *models.Product) string {
	parts := make([]string, 0, 5)
	for _, s := range []string{p.Name, p.Category, p.Gender, p.Color, p.Description} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
