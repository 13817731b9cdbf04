//go:build !cgo
// +build !cgo

package encoding

import (
	"context"
	"errors"
)

// ONNXImageEncoder stub type when built without CGO (see onnx.go for real implementation).
type ONNXImageEncoder struct{}

// NewONNXImageEncoder returns an error when built without CGO (ONNX not available).
func NewONNXImageEncoder(_ string, _ int) (*ONNXImageEncoder, error) {
	return nil, errors.New("ONNX image encoder requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

// EncodeImage is unreachable on non-CGO builds.
func (e *ONNXImageEncoder) EncodeImage(_ context.Context, _ []byte) ([]float32, error) {
	return nil, errors.New("ONNX image encoder not available")
}

// Dimensions is unreachable on non-CGO builds.
func (e *ONNXImageEncoder) Dimensions() int { return 0 }

// Close is a no-op on non-CGO builds.
func (e *ONNXImageEncoder) Close() error { return nil }
