package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// AgentInvoker sends a payload to a hosted agent runtime within a session.
type AgentInvoker interface {
	Invoke(ctx context.Context, sessionID string, payload any) (string, error)
}

type agentPayload struct {
	Prompt string `json:"prompt"`
}

// AgentExplorer explores with a browser-capable hosted agent.
type AgentExplorer struct {
	agent AgentInvoker
}

// NewAgentExplorer creates an AgentExplorer.
func NewAgentExplorer(agent AgentInvoker) *AgentExplorer {
	return &AgentExplorer{agent: agent}
}

// Explore asks the agent to browse req.URL and returns its narrative.
func (e *AgentExplorer) Explore(ctx context.Context, req ExploreRequest) (string, error) {
	reply, err := e.agent.Invoke(ctx, req.SessionID, agentPayload{Prompt: buildNarrativePrompt(req, "")})
	if err != nil {
		return "", fmt.Errorf("explore %s: %w", req.URL, err)
	}
	narrative := strings.TrimSpace(reply)
	if narrative == "" {
		return "", fmt.Errorf("explore %s: %w", req.URL, ErrEmptyOutput)
	}
	return narrative, nil
}

// PageExplorer reads the landing page and has the model describe a demo of
// it. It is used when no agent runtime is configured.
type PageExplorer struct {
	extractor ContentExtractor
	model     ModelClient
}

// NewPageExplorer creates a PageExplorer.
func NewPageExplorer(extractor ContentExtractor, model ModelClient) *PageExplorer {
	return &PageExplorer{extractor: extractor, model: model}
}

// Explore extracts req.URL and returns the model's narrative.
func (e *PageExplorer) Explore(ctx context.Context, req ExploreRequest) (string, error) {
	content, err := e.extractor.Extract(ctx, req.URL)
	if err != nil {
		return "", fmt.Errorf("explore %s: %w", req.URL, err)
	}
	slog.Debug("page extracted", "submission_id", req.SessionID, "title", content.Title, "words", content.WordCount)

	reply, err := e.model.Complete(ctx, buildNarrativePrompt(req, content.NormalizedText))
	if err != nil {
		return "", fmt.Errorf("explore %s: %w", req.URL, err)
	}
	narrative := strings.TrimSpace(StripCodeFence(reply, "text"))
	if narrative == "" {
		return "", fmt.Errorf("explore %s: %w", req.URL, ErrEmptyOutput)
	}
	return narrative, nil
}
