package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient implements ModelClient using the Google Generative AI SDK.
type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiClient creates a Gemini model client. Close releases the
// underlying connection.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	m := client.GenerativeModel(model)
	m.SetTemperature(0.3)
	m.SetMaxOutputTokens(8192)
	return &GeminiClient{client: client, model: m}, nil
}

// Complete sends a prompt to Gemini and returns the text of the first
// candidate.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return withRetry(ctx, "gemini", func(ctx context.Context) (string, error) {
		resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", err
		}
		return geminiText(resp)
	})
}

// Close releases the client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("empty candidate, finish reason %v", cand.FinishReason)
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content in response")
	}
	return sb.String(), nil
}
