// Package personalization re-ranks retrieval results using per-user taste
// signals and builds recommendations from favorites, history and declared
// preferences.
package personalization

import (
	"sort"
	"strings"

	"github.com/hyperjump/mitate/internal/config"
	"github.com/hyperjump/mitate/internal/models"
	"github.com/hyperjump/mitate/pkg/utils"
)

// baseScore is the prior used when boosting a product that has no retrieval
// score, e.g. in recommendation strategies.
const baseScore = 0.5

// Booster applies additive preference boosts on top of fused scores.
type Booster struct {
	cfg config.PersonalizationConfig
}

func NewBooster(cfg config.PersonalizationConfig) *Booster {
	return &Booster{cfg: cfg}
}

// Apply boosts and re-ranks fused results against the user's preference
// snapshot, then truncates to limit. An empty snapshot is the identity: the
// input order is preserved and scores are untouched. Boosts are additive and
// the personalized score is clamped to [0,1]. The re-sort is stable, so
// results whose personalized scores tie keep their fused order.
func (b *Booster) Apply(results []*models.FusedResult, prefs *models.PreferenceSnapshot, limit int) []*models.PersonalizedResult {
	out := make([]*models.PersonalizedResult, 0, len(results))

	if prefs == nil || prefs.IsEmpty() {
		for _, r := range results {
			out = append(out, &models.PersonalizedResult{
				FusedResult:       *r,
				PersonalizedScore: r.Score,
			})
		}
		return truncate(out, limit)
	}

	favorites := make(map[string]bool, len(prefs.FavoriteIDs))
	for _, id := range prefs.FavoriteIDs {
		favorites[id] = true
	}

	for _, r := range results {
		pr := &models.PersonalizedResult{FusedResult: *r}
		pr.Boosts = b.boostsFor(r.ID, r.Product, favorites, prefs)
		pr.IsFavorite = favorites[r.ID]
		pr.PersonalizedScore = utils.Clamp01(r.Score + pr.Boosts.Total())
		out = append(out, pr)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PersonalizedScore > out[j].PersonalizedScore
	})
	return truncate(out, limit)
}

// Score returns the boosted score for a product with no retrieval prior.
func (b *Booster) Score(p *models.Product, prefs *models.PreferenceSnapshot) float64 {
	if prefs == nil || prefs.IsEmpty() || p == nil {
		return baseScore
	}
	favorites := make(map[string]bool, len(prefs.FavoriteIDs))
	for _, id := range prefs.FavoriteIDs {
		favorites[id] = true
	}
	boosts := b.boostsFor(p.ID, p, favorites, prefs)
	return utils.Clamp01(baseScore + boosts.Total())
}

func (b *Booster) boostsFor(id string, p *models.Product, favorites map[string]bool, prefs *models.PreferenceSnapshot) models.BoostBreakdown {
	var boosts models.BoostBreakdown
	if favorites[id] {
		boosts.Favorite = b.cfg.FavoriteBoost
	}
	if p == nil {
		return boosts
	}
	if matchesColor(p, prefs.Colors) {
		boosts.Color = b.cfg.ColorBoost
	}
	if matchesStyle(p, prefs.Styles) {
		boosts.Style = b.cfg.StyleBoost
	}
	return boosts
}

// matchesColor compares the product color case-insensitively against the
// user's preferred colors.
func matchesColor(p *models.Product, colors []string) bool {
	if p.Color == "" {
		return false
	}
	pc := strings.ToLower(p.Color)
	for _, c := range colors {
		if strings.ToLower(c) == pc {
			return true
		}
	}
	return false
}

// matchesStyle looks for a preferred style keyword in the product category
// or description, case-insensitively.
func matchesStyle(p *models.Product, styles []string) bool {
	haystack := strings.ToLower(p.Category + " " + p.Description)
	for _, s := range styles {
		if s == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func truncate(results []*models.PersonalizedResult, limit int) []*models.PersonalizedResult {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
