// Package orchestrator runs the full query pipeline: validate, encode and
// retrieve, fuse, personalize, then optionally generate a grounded answer.
package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/mitate/internal/answercache"
	"github.com/hyperjump/mitate/internal/fusion"
	"github.com/hyperjump/mitate/internal/generation"
	"github.com/hyperjump/mitate/internal/models"
	"github.com/hyperjump/mitate/internal/personalization"
	"github.com/hyperjump/mitate/internal/preferences"
	"github.com/hyperjump/mitate/internal/retrieval"
	"github.com/hyperjump/mitate/internal/session"
)

// fallbackAnswer is returned when answer generation fails; the search
// results themselves are still served.
const fallbackAnswer = "I couldn't put together a styling answer right now, but the results below match your search."

type retriever interface {
	Retrieve(ctx context.Context, q *models.SearchQuery, k int) (*retrieval.Result, error)
}

// Orchestrator coordinates the retrieval pipeline. Retrieval and encoding
// failures fail the request; personalization and generation failures
// degrade it, flagged on the response.
type Orchestrator struct {
	retriever retriever
	fusion    *fusion.Engine
	booster   *personalization.Booster
	prefs     preferences.Store
	cache     *answercache.Cache
	generator generation.Generator
	sessions  *session.Store
	// extra candidate depth fetched when personalization will re-rank
	personalizeFetch int
	logger           *zap.Logger
}

type Params struct {
	Retriever retriever
	Fusion    *fusion.Engine
	Booster   *personalization.Booster
	Prefs     preferences.Store
	Cache     *answercache.Cache
	Generator generation.Generator
	Sessions  *session.Store
	// PersonalizeFetch multiplies the retrieval depth for personalized
	// queries so boosted items outside the raw top-k can surface.
	PersonalizeFetch int
	Logger           *zap.Logger
}

func New(p Params) *Orchestrator {
	if p.PersonalizeFetch < 1 {
		p.PersonalizeFetch = 3
	}
	return &Orchestrator{
		retriever:        p.Retriever,
		fusion:           p.Fusion,
		booster:          p.Booster,
		prefs:            p.Prefs,
		cache:            p.Cache,
		generator:        p.Generator,
		sessions:         p.Sessions,
		personalizeFetch: p.PersonalizeFetch,
		logger:           p.Logger,
	}
}

// HandleQuery executes one search request end to end.
func (o *Orchestrator) HandleQuery(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if err := q.Validate(); err != nil {
		return nil, err
	}

	fetchK := q.Limit
	if q.Personalize {
		fetchK = q.Limit * o.personalizeFetch
	}
	retrieved, err := o.retriever.Retrieve(ctx, q, fetchK)
	if err != nil {
		return nil, err
	}

	fused := o.fusion.Fuse(retrieved.Text, retrieved.Image, q.AlphaOrDefault())

	resp := &models.SearchResponse{
		Query:   q.Text,
		Partial: retrieved.Partial,
	}
	resp.Results = o.personalize(ctx, q, fused, resp)
	resp.Total = len(resp.Results)

	o.recordHistory(ctx, q)

	if q.Answer {
		o.answer(ctx, q, resp)
	}

	resp.QueryTime = time.Since(start).Milliseconds()
	return resp, nil
}

// personalize boosts and truncates the fused ranking. A preference store
// failure falls back to the unpersonalized ranking.
func (o *Orchestrator) personalize(ctx context.Context, q *models.SearchQuery, fused []*models.FusedResult, resp *models.SearchResponse) []*models.PersonalizedResult {
	if !q.Personalize {
		return o.booster.Apply(fusion.Top(fused, q.Limit), nil, q.Limit)
	}

	snap, err := o.prefs.GetPreferences(ctx, q.UserID)
	if err != nil {
		o.logger.Warn("preference lookup failed, serving unpersonalized results",
			zap.String("user_id", q.UserID), zap.Error(err))
		return o.booster.Apply(fusion.Top(fused, q.Limit), nil, q.Limit)
	}
	resp.Personalized = true
	return o.booster.Apply(fused, snap, q.Limit)
}

func (o *Orchestrator) recordHistory(ctx context.Context, q *models.SearchQuery) {
	if q.UserID == "" || q.Text == "" {
		return
	}
	if err := o.prefs.RecordSearch(ctx, q.UserID, q.Text); err != nil {
		o.logger.Warn("failed to record search history",
			zap.String("user_id", q.UserID), zap.Error(err))
	}
}

// answer fills in the generated answer, consulting the cache first. A
// generation failure degrades to a fallback message, never a request error.
func (o *Orchestrator) answer(ctx context.Context, q *models.SearchQuery, resp *models.SearchResponse) {
	if o.generator == nil {
		return
	}

	var history []generation.Turn
	if q.SessionID != "" && o.sessions != nil {
		history = o.sessions.History(q.SessionID)
	}

	generate := func(ctx context.Context) (string, error) {
		return o.generator.Generate(ctx, q.Text, resp.Results, history)
	}

	var (
		answer string
		cached bool
		err    error
	)
	if q.Text == "" {
		// Image-only queries have no usable cache key; generate fresh.
		answer, err = generate(ctx)
	} else {
		key := answercache.Key(q.Text, q.Limit)
		answer, cached, err = o.cache.GetOrGenerate(ctx, key, generate)
	}
	if err != nil {
		o.logger.Warn("answer generation failed", zap.Error(err))
		resp.Answer = fallbackAnswer
		return
	}
	resp.Answer = answer
	resp.Cached = cached

	if q.SessionID != "" && o.sessions != nil {
		o.sessions.Append(q.SessionID, generation.Turn{Query: q.Text, Answer: answer})
	}
}
