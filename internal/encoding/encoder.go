// Package encoding turns text and image queries into normalized vectors
// compatible with the catalog's vector indexes.
package encoding

import (
	"context"
	"fmt"

	"github.com/hyperjump/mitate/internal/models"
	"github.com/hyperjump/mitate/pkg/utils"
)

// TextEncoder produces vector embeddings for text.
type TextEncoder interface {
	EncodeText(ctx context.Context, text string) ([]float32, error)
}

// ImageEncoder produces vector embeddings for raw image bytes.
type ImageEncoder interface {
	EncodeImage(ctx context.Context, image []byte) ([]float32, error)
}

// QueryEncoder wraps modality encoders and guarantees the index contract:
// every output is unit-normalized and exactly Dimensions long. A shorter
// native output (e.g. a 512d image embedding in a 768d space) is right-padded
// with zeros before the final normalize; it is never truncated or rescaled.
// Text encodings are memoized by exact input string; image encodings are not
// (images are rarely repeated).
type QueryEncoder struct {
	text       TextEncoder
	image      ImageEncoder // nil when no image model is loaded
	dimensions int
	memo       *Memo
}

// NewQueryEncoder creates a query encoder for the given index dimension.
// image may be nil; EncodeImage then fails with ErrIndexUnavailable.
// memoSize <= 0 disables text memoization.
func NewQueryEncoder(text TextEncoder, image ImageEncoder, dimensions, memoSize int) (*QueryEncoder, error) {
	if text == nil {
		return nil, fmt.Errorf("text encoder is required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	var memo *Memo
	if memoSize > 0 {
		memo = NewMemo(memoSize)
	}
	return &QueryEncoder{text: text, image: image, dimensions: dimensions, memo: memo}, nil
}

// Dimensions returns the output dimension shared by both modalities.
func (e *QueryEncoder) Dimensions() int {
	return e.dimensions
}

// HasImageEncoder reports whether image queries can be encoded.
func (e *QueryEncoder) HasImageEncoder() bool {
	return e.image != nil
}

// EncodeText encodes text into a unit vector of the index dimension.
// External-model failures wrap ErrEncodingFailure with the cause; a zero
// vector is never substituted.
func (e *QueryEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	if e.memo != nil {
		if cached, ok := e.memo.Get(text); ok {
			return cached, nil
		}
	}
	vec, err := e.text.EncodeText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: text: %w", models.ErrEncodingFailure, err)
	}
	vec, err = e.finalize(vec)
	if err != nil {
		return nil, fmt.Errorf("%w: text: %w", models.ErrEncodingFailure, err)
	}
	if e.memo != nil {
		e.memo.Set(text, vec)
	}
	return vec, nil
}

// EncodeImage encodes image bytes into a unit vector of the index dimension.
func (e *QueryEncoder) EncodeImage(ctx context.Context, image []byte) ([]float32, error) {
	if e.image == nil {
		return nil, fmt.Errorf("%w: no image encoder loaded", models.ErrIndexUnavailable)
	}
	vec, err := e.image.EncodeImage(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("%w: image: %w", models.ErrEncodingFailure, err)
	}
	vec, err = e.finalize(vec)
	if err != nil {
		return nil, fmt.Errorf("%w: image: %w", models.ErrEncodingFailure, err)
	}
	return vec, nil
}

// finalize pads to the index dimension, then normalizes. Padding happens on
// the pre-normalized vector; zeros contribute nothing to the norm.
func (e *QueryEncoder) finalize(vec []float32) ([]float32, error) {
	if len(vec) > e.dimensions {
		return nil, fmt.Errorf("model output dimension %d exceeds index dimension %d", len(vec), e.dimensions)
	}
	vec = utils.PadTo(vec, e.dimensions)
	utils.NormalizeL2(vec)
	return vec, nil
}
