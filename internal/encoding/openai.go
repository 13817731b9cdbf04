package encoding

import (
	"context"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEncoderConfig holds settings for the embeddings-API text encoder.
type OpenAIEncoderConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int // requested output dimension; 0 uses the model default
	MaxRetries int
	Timeout    time.Duration
}

// OpenAIEncoder encodes text via an OpenAI-compatible embeddings API with
// exponential-backoff retry.
type OpenAIEncoder struct {
	client *openai.Client
	config OpenAIEncoderConfig
}

// NewOpenAIEncoder creates a text encoder backed by an embeddings API.
func NewOpenAIEncoder(cfg OpenAIEncoderConfig) *OpenAIEncoder {
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIEncoder{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}
}

// EncodeText returns the raw embedding for text. The QueryEncoder wrapper is
// responsible for padding and normalization.
func (e *OpenAIEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	var result []float32
	err := e.doWithRetry(ctx, func(ctx context.Context) error {
		req := openai.EmbeddingRequest{
			Input:      []string{text},
			Model:      openai.EmbeddingModel(e.config.Model),
			Dimensions: e.config.Dimensions,
		}
		resp, err := e.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("empty embedding response")
		}
		result = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings API: %w", err)
	}
	return result, nil
}

// doWithRetry executes fn with a per-attempt timeout and exponential backoff.
func (e *OpenAIEncoder) doWithRetry(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < e.config.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < e.config.MaxRetries-1 {
			waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}
