package orchestrator

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/mitate/internal/answercache"
	"github.com/hyperjump/mitate/internal/config"
	"github.com/hyperjump/mitate/internal/fusion"
	"github.com/hyperjump/mitate/internal/generation"
	"github.com/hyperjump/mitate/internal/models"
	"github.com/hyperjump/mitate/internal/personalization"
	"github.com/hyperjump/mitate/internal/preferences"
	"github.com/hyperjump/mitate/internal/retrieval"
	"github.com/hyperjump/mitate/internal/session"
)

type fakeRetriever struct {
	result *retrieval.Result
	err    error
	lastK  int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, q *models.SearchQuery, k int) (*retrieval.Result, error) {
	f.lastK = k
	return f.result, f.err
}

type failingPrefs struct {
	*preferences.MemoryStore
}

func (f *failingPrefs) GetPreferences(ctx context.Context, userID string) (*models.PreferenceSnapshot, error) {
	return nil, errors.New("store offline")
}

func cand(id string, score float64) *models.Candidate {
	return &models.Candidate{
		ID: id, Score: score, Modality: models.ModalityText,
		Product: &models.Product{ID: id, Name: "Item " + id},
	}
}

func boostConfig() config.PersonalizationConfig {
	return config.PersonalizationConfig{
		FavoriteBoost: 0.30, ColorBoost: 0.15, StyleBoost: 0.10,
		FavoritesWeight: 0.50, HistoryWeight: 0.30, PreferencesWeight: 0.20,
		HistoryDepth: 5,
	}
}

func newTestOrchestrator(r retriever, prefs preferences.Store, gen generation.Generator) *Orchestrator {
	return New(Params{
		Retriever:        r,
		Fusion:           fusion.NewEngine(),
		Booster:          personalization.NewBooster(boostConfig()),
		Prefs:            prefs,
		Cache:            answercache.New(),
		Generator:        gen,
		Sessions:         session.NewStore(10, 0, 5),
		PersonalizeFetch: 3,
		Logger:           zap.NewNop(),
	})
}

func TestHandleQueryInvalid(t *testing.T) {
	o := newTestOrchestrator(&fakeRetriever{}, preferences.NewMemoryStore(), nil)
	_, err := o.HandleQuery(context.Background(), &models.SearchQuery{})
	if !errors.Is(err, models.ErrInvalidQuery) {
		t.Errorf("err = %v, want ErrInvalidQuery", err)
	}
}

func TestHandleQueryBasicPipeline(t *testing.T) {
	r := &fakeRetriever{result: &retrieval.Result{
		Text: []*models.Candidate{cand("1", 0.9), cand("2", 0.8), cand("3", 0.7)},
	}}
	o := newTestOrchestrator(r, preferences.NewMemoryStore(), nil)

	resp, err := o.HandleQuery(context.Background(), &models.SearchQuery{Text: "blue shirt", Limit: 2})
	if err != nil {
		t.Fatalf("HandleQuery: %v", err)
	}
	if r.lastK != 2 {
		t.Errorf("retrieval depth = %d, want 2", r.lastK)
	}
	if resp.Total != 2 || len(resp.Results) != 2 {
		t.Fatalf("Total = %d, Results = %d, want 2", resp.Total, len(resp.Results))
	}
	if resp.Results[0].ID != "1" || resp.Results[1].ID != "2" {
		t.Errorf("order = [%s %s]", resp.Results[0].ID, resp.Results[1].ID)
	}
	if resp.Personalized {
		t.Error("Personalized should be false without personalize flag")
	}
	if resp.Query != "blue shirt" {
		t.Errorf("Query = %q", resp.Query)
	}
}

func TestHandleQueryRetrievalFailurePropagates(t *testing.T) {
	r := &fakeRetriever{err: models.ErrIndexUnavailable}
	o := newTestOrchestrator(r, preferences.NewMemoryStore(), nil)

	_, err := o.HandleQuery(context.Background(), &models.SearchQuery{Text: "x"})
	if !errors.Is(err, models.ErrIndexUnavailable) {
		t.Errorf("err = %v, want ErrIndexUnavailable", err)
	}
}

func TestHandleQueryPersonalizes(t *testing.T) {
	ctx := context.Background()
	r := &fakeRetriever{result: &retrieval.Result{
		Text: []*models.Candidate{cand("plain", 0.8), cand("fav", 0.6)},
	}}
	prefs := preferences.NewMemoryStore()
	if err := prefs.AddFavorite(ctx, "u1", "fav"); err != nil {
		t.Fatal(err)
	}
	o := newTestOrchestrator(r, prefs, nil)

	resp, err := o.HandleQuery(ctx, &models.SearchQuery{
		Text: "shirt", Limit: 2, Personalize: true, UserID: "u1",
	})
	if err != nil {
		t.Fatalf("HandleQuery: %v", err)
	}
	if r.lastK != 6 {
		t.Errorf("personalized retrieval depth = %d, want limit*3 = 6", r.lastK)
	}
	if !resp.Personalized {
		t.Error("Personalized should be true")
	}
	// fav: 0.6 + 0.3 = 0.9 beats plain's 0.8
	if resp.Results[0].ID != "fav" {
		t.Errorf("top result = %s, want fav", resp.Results[0].ID)
	}
	if !resp.Results[0].IsFavorite {
		t.Error("IsFavorite should be set")
	}
}

func TestHandleQueryPersonalizationDegrades(t *testing.T) {
	r := &fakeRetriever{result: &retrieval.Result{
		Text: []*models.Candidate{cand("1", 0.9)},
	}}
	o := newTestOrchestrator(r, &failingPrefs{preferences.NewMemoryStore()}, nil)

	resp, err := o.HandleQuery(context.Background(), &models.SearchQuery{
		Text: "shirt", Personalize: true, UserID: "u1",
	})
	if err != nil {
		t.Fatalf("HandleQuery should degrade, got %v", err)
	}
	if resp.Personalized {
		t.Error("Personalized should be false after store failure")
	}
	if len(resp.Results) != 1 {
		t.Errorf("Results = %d, want 1", len(resp.Results))
	}
}

func TestHandleQueryAnswerCaching(t *testing.T) {
	r := &fakeRetriever{result: &retrieval.Result{
		Text: []*models.Candidate{cand("1", 0.9)},
	}}
	gen := &generation.MockGenerator{}
	o := newTestOrchestrator(r, preferences.NewMemoryStore(), gen)

	q := &models.SearchQuery{Text: "Blue Shirt", Limit: 5, Answer: true}
	resp, err := o.HandleQuery(context.Background(), q)
	if err != nil {
		t.Fatalf("HandleQuery: %v", err)
	}
	if resp.Answer == "" || resp.Cached {
		t.Errorf("first answer = %q cached=%v", resp.Answer, resp.Cached)
	}

	// same query with different whitespace and case shares the cache entry
	resp2, err := o.HandleQuery(context.Background(), &models.SearchQuery{
		Text: "  blue   shirt ", Limit: 5, Answer: true,
	})
	if err != nil {
		t.Fatalf("HandleQuery: %v", err)
	}
	if !resp2.Cached {
		t.Error("second answer should come from the cache")
	}
	if gen.Calls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.Calls)
	}
}

// Image-only queries must not share a cache entry keyed on empty text.
func TestHandleQueryImageOnlyAnswerSkipsCache(t *testing.T) {
	r := &fakeRetriever{result: &retrieval.Result{
		Image: []*models.Candidate{cand("1", 0.9)},
	}}
	gen := &generation.MockGenerator{}
	o := newTestOrchestrator(r, preferences.NewMemoryStore(), gen)

	for i := 0; i < 2; i++ {
		resp, err := o.HandleQuery(context.Background(), &models.SearchQuery{
			Image: []byte{0x01}, Limit: 5, Answer: true,
		})
		if err != nil {
			t.Fatalf("HandleQuery: %v", err)
		}
		if resp.Cached {
			t.Errorf("image-only answer %d should never be cached", i+1)
		}
	}
	if gen.Calls != 2 {
		t.Errorf("generator calls = %d, want 2", gen.Calls)
	}
}

func TestHandleQueryAnswerFailureDegrades(t *testing.T) {
	r := &fakeRetriever{result: &retrieval.Result{
		Text: []*models.Candidate{cand("1", 0.9)},
	}}
	gen := &generation.MockGenerator{Err: models.ErrGenerationFailure}
	o := newTestOrchestrator(r, preferences.NewMemoryStore(), gen)

	resp, err := o.HandleQuery(context.Background(), &models.SearchQuery{Text: "shirt", Answer: true})
	if err != nil {
		t.Fatalf("generation failure must not fail the request: %v", err)
	}
	if resp.Answer != fallbackAnswer {
		t.Errorf("Answer = %q, want fallback", resp.Answer)
	}
	if resp.Cached {
		t.Error("failed generation must not be cached")
	}
	if len(resp.Results) != 1 {
		t.Error("results should still be served")
	}
}

// captureGenerator records the history it was handed.
type captureGenerator struct {
	history []generation.Turn
}

func (c *captureGenerator) Generate(ctx context.Context, query string, results []*models.PersonalizedResult, history []generation.Turn) (string, error) {
	c.history = history
	return "answer to " + query, nil
}

func TestHandleQueryConversationMemory(t *testing.T) {
	r := &fakeRetriever{result: &retrieval.Result{
		Text: []*models.Candidate{cand("1", 0.9)},
	}}
	gen := &captureGenerator{}
	o := newTestOrchestrator(r, preferences.NewMemoryStore(), gen)
	sid := o.sessions.Create("u1")

	_, err := o.HandleQuery(context.Background(), &models.SearchQuery{
		Text: "first question", Answer: true, SessionID: sid,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(gen.history) != 0 {
		t.Errorf("first turn history = %v, want empty", gen.history)
	}

	_, err = o.HandleQuery(context.Background(), &models.SearchQuery{
		Text: "second question", Answer: true, SessionID: sid,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(gen.history) != 1 || gen.history[0].Query != "first question" {
		t.Errorf("second turn history = %v", gen.history)
	}
}

func TestHandleQueryRecordsHistory(t *testing.T) {
	ctx := context.Background()
	r := &fakeRetriever{result: &retrieval.Result{
		Text: []*models.Candidate{cand("1", 0.9)},
	}}
	prefs := preferences.NewMemoryStore()
	o := newTestOrchestrator(r, prefs, nil)

	if _, err := o.HandleQuery(ctx, &models.SearchQuery{Text: "wool coat", UserID: "u1"}); err != nil {
		t.Fatal(err)
	}
	queries, err := prefs.GetRecentQueries(ctx, "u1", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(queries) != 1 || queries[0] != "wool coat" {
		t.Errorf("recorded history = %v", queries)
	}
}
