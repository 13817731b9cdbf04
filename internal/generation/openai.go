package generation

import (
	"context"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperjump/mitate/internal/models"
)

// OpenAIGeneratorConfig holds settings for the chat-completions generator.
type OpenAIGeneratorConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	MaxRetries  int
	Timeout     time.Duration
}

// OpenAIGenerator generates answers via an OpenAI-compatible chat API with
// exponential-backoff retry.
type OpenAIGenerator struct {
	client *openai.Client
	config OpenAIGeneratorConfig
}

var _ Generator = (*OpenAIGenerator)(nil)

func NewOpenAIGenerator(cfg OpenAIGeneratorConfig) *OpenAIGenerator {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, query string, results []*models.PersonalizedResult, history []Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)*2+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt + "\n\n" + buildContext(results),
	})
	for _, turn := range history {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: turn.Query},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: turn.Answer},
		)
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: query,
	})

	var answer string
	err := g.doWithRetry(ctx, func(ctx context.Context) error {
		resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       g.config.Model,
			Messages:    messages,
			MaxTokens:   g.config.MaxTokens,
			Temperature: g.config.Temperature,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty completion response")
		}
		answer = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: chat API: %w", models.ErrGenerationFailure, err)
	}
	return answer, nil
}

// doWithRetry executes fn with a per-attempt timeout and exponential backoff.
func (g *OpenAIGenerator) doWithRetry(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < g.config.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < g.config.MaxRetries-1 {
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
