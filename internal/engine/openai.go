package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient implements ModelClient using the OpenAI Chat Completions API.
// It also works with any OpenAI-compatible service by setting a custom base URL.
type OpenAIClient struct {
	client openai.Client
	model  string
}

type openAIConfig struct {
	model   string
	baseURL string
	timeout time.Duration
}

// OpenAIOption configures the OpenAI client.
type OpenAIOption func(*openAIConfig)

// WithModel sets the model name (default: gpt-4o-mini).
func WithModel(model string) OpenAIOption {
	return func(c *openAIConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL overrides the API endpoint (default: https://api.openai.com/v1).
func WithBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) { c.baseURL = strings.TrimRight(url, "/") + "/" }
}

// WithRequestTimeout sets the per-request timeout.
func WithRequestTimeout(d time.Duration) OpenAIOption {
	return func(c *openAIConfig) { c.timeout = d }
}

// NewOpenAIClient creates a new OpenAI model client.
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	cfg := openAIConfig{model: openai.ChatModelGPT4oMini, timeout: 120 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Retries are handled by withRetry.
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(cfg.timeout))
	}
	return &OpenAIClient{
		client: openai.NewClient(reqOpts...),
		model:  cfg.model,
	}
}

// Complete sends a prompt to OpenAI and returns the assistant's response text.
// It retries once with backoff on transient failures.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return withRetry(ctx, "openai", func(ctx context.Context) (string, error) {
		completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Model:       openai.ChatModel(c.model),
			Temperature: openai.Float(0.3),
		})
		if err != nil {
			var oe *openai.Error
			if errors.As(err, &oe) {
				return "", &apiError{StatusCode: oe.StatusCode, Body: oe.Message}
			}
			return "", err
		}
		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("no choices in response")
		}
		content := completion.Choices[0].Message.Content
		if content == "" {
			return "", fmt.Errorf("empty response, finish reason %q", completion.Choices[0].FinishReason)
		}
		return content, nil
	})
}
