// Package retrieval runs per-modality vector search and resolves hits
// against the product catalog.
package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/mitate/internal/catalog"
	"github.com/hyperjump/mitate/internal/models"
	"github.com/hyperjump/mitate/internal/vector"
)

// Encoder turns query inputs into unit vectors in the index space.
type Encoder interface {
	EncodeText(ctx context.Context, text string) ([]float32, error)
	EncodeImage(ctx context.Context, image []byte) ([]float32, error)
	HasImageEncoder() bool
}

// Result carries the per-modality candidate lists from one retrieval pass.
// Partial is set when the image modality was requested but unavailable and
// the pass degraded to text only.
type Result struct {
	Text    []*models.Candidate
	Image   []*models.Candidate
	Partial bool
}

// Retriever fans the query out across modality indexes. Similarities are
// rescaled from [-1,1] to [0,1] before fusion so both modalities score on
// the same scale.
type Retriever struct {
	encoder         Encoder
	textIndex       vector.Index
	imageIndex      vector.Index // nil disables image search
	catalog         *catalog.Catalog
	fetchMultiplier int
	minScore        float64
	logger          *zap.Logger
}

type Config struct {
	FetchMultiplier int
	MinScore        float64
}

func New(encoder Encoder, textIndex, imageIndex vector.Index, cat *catalog.Catalog, cfg Config, logger *zap.Logger) *Retriever {
	if cfg.FetchMultiplier < 2 {
		cfg.FetchMultiplier = 3
	}
	return &Retriever{
		encoder:         encoder,
		textIndex:       textIndex,
		imageIndex:      imageIndex,
		catalog:         cat,
		fetchMultiplier: cfg.FetchMultiplier,
		minScore:        cfg.MinScore,
		logger:          logger,
	}
}

// Retrieve searches each requested modality for the top candidates. For a
// multimodal query each modality over-fetches k * fetchMultiplier so fusion
// has enough overlap to rank from; a single-modality query fetches exactly
// k. Modalities run concurrently; an encoding or index failure on either
// fails the pass.
func (r *Retriever) Retrieve(ctx context.Context, q *models.SearchQuery, k int) (*Result, error) {
	hasText := q.Text != ""
	hasImage := len(q.Image) > 0
	if !hasText && !hasImage {
		return nil, fmt.Errorf("%w: no query modality", models.ErrInvalidQuery)
	}
	if r.textIndex == nil || r.textIndex.Size() == 0 {
		return nil, fmt.Errorf("%w: text index not loaded", models.ErrIndexUnavailable)
	}

	result := &Result{}
	imageReady := r.imageIndex != nil && r.encoder.HasImageEncoder()
	if hasImage && !imageReady {
		if !hasText {
			return nil, fmt.Errorf("%w: image search not available", models.ErrIndexUnavailable)
		}
		r.logger.Warn("image modality unavailable, degrading to text only")
		result.Partial = true
		hasImage = false
	}

	fetchK := k
	if hasText && hasImage {
		fetchK = k * r.fetchMultiplier
	}

	g, gctx := errgroup.WithContext(ctx)
	if hasText {
		g.Go(func() error {
			cands, err := r.searchText(gctx, q.Text, fetchK)
			if err != nil {
				return err
			}
			result.Text = cands
			return nil
		})
	}
	if hasImage {
		g.Go(func() error {
			cands, err := r.searchImage(gctx, q.Image, fetchK)
			if err != nil {
				return err
			}
			result.Image = cands
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Retriever) searchText(ctx context.Context, text string, k int) ([]*models.Candidate, error) {
	vec, err := r.encoder.EncodeText(ctx, text)
	if err != nil {
		return nil, err
	}
	hits, err := r.textIndex.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: text search: %w", models.ErrIndexUnavailable, err)
	}
	return r.toCandidates(hits, models.ModalityText), nil
}

func (r *Retriever) searchImage(ctx context.Context, image []byte, k int) ([]*models.Candidate, error) {
	vec, err := r.encoder.EncodeImage(ctx, image)
	if err != nil {
		return nil, err
	}
	hits, err := r.imageIndex.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: image search: %w", models.ErrIndexUnavailable, err)
	}
	return r.toCandidates(hits, models.ModalityImage), nil
}

// toCandidates rescales scores, drops hits below the floor and attaches
// catalog entries. Hits whose id is missing from the catalog are dropped:
// the index is stale relative to the product table.
func (r *Retriever) toCandidates(hits []*vector.Result, modality models.Modality) []*models.Candidate {
	cands := make([]*models.Candidate, 0, len(hits))
	for _, h := range hits {
		score := vector.RescaleScore(h.Score)
		if score < r.minScore {
			continue
		}
		p, ok := r.catalog.Get(h.ID)
		if !ok {
			r.logger.Debug("index hit missing from catalog", zap.String("id", h.ID))
			continue
		}
		cands = append(cands, &models.Candidate{
			ID:       h.ID,
			Score:    score,
			Modality: modality,
			Product:  p,
		})
	}
	return cands
}
