// Package fusion merges per-modality candidate lists into one ranking with
// a weighted sum: alpha * text + (1 - alpha) * image.
package fusion

import (
	"sort"

	"github.com/hyperjump/mitate/internal/models"
)

// accumulator collects the per-modality contributions for one product id.
type accumulator struct {
	textScore  float64
	imageScore float64
	hasText    bool
	hasImage   bool
	product    *models.Product
}

func (a *accumulator) source() models.Modality {
	switch {
	case a.hasText && a.hasImage:
		return models.ModalityBoth
	case a.hasText:
		return models.ModalityText
	default:
		return models.ModalityImage
	}
}

// Engine fuses text and image candidate sets.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Fuse combines candidate lists with the weight alpha on the text modality.
// A product present in only one list contributes a zero score for the other
// modality; fused scores are never renormalized. The output is sorted by
// fused score descending, ties broken by id ascending so the ranking is
// deterministic. Duplicate ids within one list keep the last score seen.
func (e *Engine) Fuse(text, image []*models.Candidate, alpha float64) []*models.FusedResult {
	acc := make(map[string]*accumulator, len(text)+len(image))
	order := make([]string, 0, len(text)+len(image))

	get := func(id string) *accumulator {
		a, ok := acc[id]
		if !ok {
			a = &accumulator{}
			acc[id] = a
			order = append(order, id)
		}
		return a
	}

	for _, c := range text {
		a := get(c.ID)
		a.textScore = c.Score
		a.hasText = true
		if c.Product != nil {
			a.product = c.Product
		}
	}
	for _, c := range image {
		a := get(c.ID)
		a.imageScore = c.Score
		a.hasImage = true
		if c.Product != nil {
			a.product = c.Product
		}
	}

	results := make([]*models.FusedResult, 0, len(order))
	for _, id := range order {
		a := acc[id]
		results = append(results, &models.FusedResult{
			ID:         id,
			Score:      alpha*a.textScore + (1-alpha)*a.imageScore,
			TextScore:  a.textScore,
			ImageScore: a.imageScore,
			Source:     a.source(),
			Product:    a.product,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	return results
}

// Top truncates a fused ranking to at most k results.
func Top(results []*models.FusedResult, k int) []*models.FusedResult {
	if k < 0 {
		k = 0
	}
	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}
