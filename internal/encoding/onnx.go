//go:build cgo
// +build cgo

// ONNX-based CLIP image encoder (requires CGO and the onnxruntime library).
package encoding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXImageEncoder runs a CLIP vision model through ONNX Runtime.
type ONNXImageEncoder struct {
	session    *ort.AdvancedSession
	dimensions int
	// Pre-allocated tensors for Run(); we update input data and read output.
	pixelTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	mu           sync.Mutex
}

// NewONNXImageEncoder creates an image encoder from a CLIP vision ONNX model.
// dimensions is the model's native output dimension (512 for ViT-B/32).
// InitializeEnvironment is called if not already done.
func NewONNXImageEncoder(modelPath string, dimensions int) (*ONNXImageEncoder, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	pixelData := make([]float32, 3*clipImageSize*clipImageSize)
	pixelTensor, err := ort.NewTensor(ort.NewShape(1, 3, clipImageSize, clipImageSize), pixelData)
	if err != nil {
		return nil, fmt.Errorf("failed to create pixel_values tensor: %w", err)
	}
	outputData := make([]float32, dimensions)
	outputTensor, err := ort.NewTensor(ort.NewShape(1, int64(dimensions)), outputData)
	if err != nil {
		pixelTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"pixel_values"},
		[]string{"image_embeds"},
		[]ort.ArbitraryTensor{pixelTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		pixelTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXImageEncoder{
		session:      session,
		dimensions:   dimensions,
		pixelTensor:  pixelTensor,
		outputTensor: outputTensor,
	}, nil
}

// EncodeImage preprocesses the image bytes and runs CLIP vision inference.
// The returned vector is the model's raw output; the QueryEncoder wrapper
// pads and normalizes it.
func (e *ONNXImageEncoder) EncodeImage(ctx context.Context, image []byte) ([]float32, error) {
	pixels, err := PreprocessImage(image)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	copy(e.pixelTensor.GetData(), pixels)
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	outputData := e.outputTensor.GetData()
	embedding := make([]float32, e.dimensions)
	copy(embedding, outputData[:e.dimensions])
	return embedding, nil
}

// Dimensions returns the model's native output dimension.
func (e *ONNXImageEncoder) Dimensions() int {
	return e.dimensions
}

// Close releases the ONNX session and tensors.
func (e *ONNXImageEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	if e.pixelTensor != nil {
		e.pixelTensor.Destroy()
		e.pixelTensor = nil
	}
	if e.outputTensor != nil {
		e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return nil
}
