package personalization

import (
	"math"
	"testing"

	"github.com/hyperjump/mitate/internal/config"
	"github.com/hyperjump/mitate/internal/models"
)

func testBoostConfig() config.PersonalizationConfig {
	return config.PersonalizationConfig{
		FavoriteBoost:     0.30,
		ColorBoost:        0.15,
		StyleBoost:        0.10,
		FavoritesWeight:   0.50,
		HistoryWeight:     0.30,
		PreferencesWeight: 0.20,
		HistoryDepth:      5,
	}
}

func fused(id string, score float64, p *models.Product) *models.FusedResult {
	return &models.FusedResult{ID: id, Score: score, Product: p}
}

func TestApplyEmptyPreferencesIsIdentity(t *testing.T) {
	b := NewBooster(testBoostConfig())
	results := []*models.FusedResult{
		fused("1", 0.9, nil),
		fused("2", 0.8, nil),
		fused("3", 0.7, nil),
	}

	for _, prefs := range []*models.PreferenceSnapshot{nil, {}} {
		out := b.Apply(results, prefs, 2)
		if len(out) != 2 {
			t.Fatalf("len = %d, want 2", len(out))
		}
		for i, want := range results[:2] {
			if out[i].ID != want.ID || out[i].PersonalizedScore != want.Score {
				t.Errorf("out[%d] = %s/%v, want %s/%v", i, out[i].ID, out[i].PersonalizedScore, want.ID, want.Score)
			}
			if out[i].Boosts.Total() != 0 {
				t.Errorf("out[%d] has boosts %+v", i, out[i].Boosts)
			}
		}
	}
}

func TestApplyFavoriteAndColorBoost(t *testing.T) {
	b := NewBooster(testBoostConfig())
	results := []*models.FusedResult{
		fused("42", 0.5, &models.Product{ID: "42", Color: "Blue"}),
	}
	prefs := &models.PreferenceSnapshot{
		Colors:      []string{"blue"},
		FavoriteIDs: []string{"42"},
	}

	out := b.Apply(results, prefs, 10)
	// 0.5 + 0.30 favorite + 0.15 color = 0.95
	if math.Abs(out[0].PersonalizedScore-0.95) > 1e-9 {
		t.Errorf("PersonalizedScore = %v, want 0.95", out[0].PersonalizedScore)
	}
	if !out[0].IsFavorite {
		t.Error("IsFavorite should be set")
	}
	if out[0].Boosts.Favorite != 0.30 || out[0].Boosts.Color != 0.15 {
		t.Errorf("Boosts = %+v", out[0].Boosts)
	}
	if out[0].Score != 0.5 {
		t.Errorf("original Score changed: %v", out[0].Score)
	}
}

func TestApplyClampsAtOne(t *testing.T) {
	b := NewBooster(testBoostConfig())
	results := []*models.FusedResult{
		fused("1", 0.9, &models.Product{ID: "1", Color: "Red", Category: "Casual Wear"}),
	}
	prefs := &models.PreferenceSnapshot{
		Colors:      []string{"RED"},
		Styles:      []string{"casual"},
		FavoriteIDs: []string{"1"},
	}
	out := b.Apply(results, prefs, 1)
	if out[0].PersonalizedScore != 1.0 {
		t.Errorf("PersonalizedScore = %v, want clamp to 1.0", out[0].PersonalizedScore)
	}
}

func TestApplyReranksAndKeepsStableTies(t *testing.T) {
	b := NewBooster(testBoostConfig())
	results := []*models.FusedResult{
		fused("plain", 0.80, &models.Product{ID: "plain"}),
		fused("fav", 0.60, &models.Product{ID: "fav"}),
		fused("tie1", 0.50, &models.Product{ID: "tie1"}),
		fused("tie2", 0.50, &models.Product{ID: "tie2"}),
	}
	prefs := &models.PreferenceSnapshot{FavoriteIDs: []string{"fav"}}

	out := b.Apply(results, prefs, 10)
	// fav: 0.60+0.30=0.90 moves above plain's 0.80; ties keep fused order
	wantOrder := []string{"fav", "plain", "tie1", "tie2"}
	for i, want := range wantOrder {
		if out[i].ID != want {
			t.Errorf("out[%d] = %s, want %s", i, out[i].ID, want)
		}
	}
}

func TestApplyStyleMatchesDescription(t *testing.T) {
	b := NewBooster(testBoostConfig())
	results := []*models.FusedResult{
		fused("1", 0.4, &models.Product{ID: "1", Description: "A sporty running jacket"}),
	}
	prefs := &models.PreferenceSnapshot{Styles: []string{"Sporty"}}
	out := b.Apply(results, prefs, 1)
	if math.Abs(out[0].PersonalizedScore-0.5) > 1e-9 {
		t.Errorf("PersonalizedScore = %v, want 0.5", out[0].PersonalizedScore)
	}
}

func TestScoreUsesBasePrior(t *testing.T) {
	b := NewBooster(testBoostConfig())
	p := &models.Product{ID: "7", Color: "Green"}

	if got := b.Score(p, &models.PreferenceSnapshot{}); got != 0.5 {
		t.Errorf("Score with empty prefs = %v, want 0.5", got)
	}
	prefs := &models.PreferenceSnapshot{Colors: []string{"green"}}
	if got := b.Score(p, prefs); math.Abs(got-0.65) > 1e-9 {
		t.Errorf("Score = %v, want 0.65", got)
	}
}
