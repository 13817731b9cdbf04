// Package generation produces natural-language shopping answers grounded in
// retrieved products.
package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/mitate/internal/models"
)

// Turn is one prior exchange carried into the generation prompt.
type Turn struct {
	Query  string
	Answer string
}

// Generator produces an answer for a query given the retrieved products and
// optional conversation history.
type Generator interface {
	Generate(ctx context.Context, query string, results []*models.PersonalizedResult, history []Turn) (string, error)
}

const systemPrompt = "You are a professional fashion assistant. " +
	"Answer the shopper's question using only the retrieved products below. " +
	"Recommend specific items by name, mention why they fit the request, and keep the tone friendly and concise."

// buildContext renders the retrieved products into the prompt block the
// model answers from.
func buildContext(results []*models.PersonalizedResult) string {
	if len(results) == 0 {
		return "No matching products were found."
	}
	var b strings.Builder
	b.WriteString("Retrieved products:\n")
	for i, r := range results {
		p := r.Product
		if p == nil {
			continue
		}
		fmt.Fprintf(&b, "%d. %s", i+1, p.Name)
		var attrs []string
		for _, a := range []string{p.Category, p.Color, p.Gender} {
			if a != "" {
				attrs = append(attrs, a)
			}
		}
		if len(attrs) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(attrs, ", "))
		}
		fmt.Fprintf(&b, ", relevance %.2f\n", r.PersonalizedScore)
	}
	return b.String()
}
