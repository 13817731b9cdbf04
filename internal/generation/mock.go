package generation

import (
	"context"
	"fmt"

	"github.com/hyperjump/mitate/internal/models"
)

// MockGenerator is a deterministic Generator for tests and offline runs.
type MockGenerator struct {
	// Err, when set, is returned from every Generate call.
	Err error
	// Calls counts Generate invocations.
	Calls int
}

var _ Generator = (*MockGenerator)(nil)

func (m *MockGenerator) Generate(ctx context.Context, query string, results []*models.PersonalizedResult, history []Turn) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	if len(results) == 0 {
		return fmt.Sprintf("I could not find anything matching %q.", query), nil
	}
	top := results[0]
	name := top.ID
	if top.Product != nil {
		name = top.Product.Name
	}
	return fmt.Sprintf("For %q I recommend %s (%d matches).", query, name, len(results)), nil
}
