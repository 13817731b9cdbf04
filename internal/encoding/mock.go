package encoding

import (
	"context"
	"hash/fnv"
	"math"
)

// MockEncoder is a deterministic encoder for tests. It derives a fixed-
// dimension vector from the input hash so the same input always gets the
// same embedding. It implements both TextEncoder and ImageEncoder.
type MockEncoder struct {
	dimensions int
	// Err, when set, is returned from every encode call.
	Err error
}

// NewMockEncoder returns an encoder producing deterministic embeddings of the given dimensions.
func NewMockEncoder(dimensions int) *MockEncoder {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &MockEncoder{dimensions: dimensions}
}

// EncodeText returns a deterministic embedding based on the text hash.
func (e *MockEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	return e.fromSeed(hashString(text)), nil
}

// EncodeImage returns a deterministic embedding based on the image byte hash.
func (e *MockEncoder) EncodeImage(ctx context.Context, image []byte) ([]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	return e.fromSeed(hashBytes(image)), nil
}

// Dimensions returns the embedding dimension.
func (e *MockEncoder) Dimensions() int {
	return e.dimensions
}

func (e *MockEncoder) fromSeed(seed int) []float32 {
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(seed*(i+1)))*0.1 + 0.01)
	}
	return emb
}

// hashString returns a deterministic non-negative hash of s.
func hashString(s string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() & 0x7fffffff)
}

func hashBytes(b []byte) int {
	h := fnv.New32a()
	_, _ = h.Write(b)
	return int(h.Sum32() & 0x7fffffff)
}
