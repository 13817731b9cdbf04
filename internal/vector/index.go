// Package vector provides vector index and similarity search.
package vector

import "context"

// Index defines vector storage and inner-product similarity search over
// unit-normalized vectors. Implementations are read-mostly: Add happens at
// load time, Search is safe for concurrent use.
type Index interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// Result is a single vector search hit. Score is the raw inner product, in
// [-1, 1] for unit vectors; callers rescaling to [0,1] must do so uniformly.
type Result struct {
	ID    string
	Score float64
}
