package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyOutput is returned when the model reply has no usable content
// after post-processing.
var ErrEmptyOutput = errors.New("model returned empty output")

// Generator produces the automation and voice scripts. Each call makes
// exactly one model request.
type Generator struct {
	model    ModelClient
	denylist []string
}

// NewGenerator creates a Generator. A nil denylist selects DefaultDenylist.
func NewGenerator(model ModelClient, denylist []string) *Generator {
	if denylist == nil {
		denylist = DefaultDenylist
	}
	return &Generator{model: model, denylist: denylist}
}

// AutomationScript generates the Python source of a browser automation that
// replays req.Narrative and records it to a fixed filename.
func (g *Generator) AutomationScript(ctx context.Context, req AutomationRequest) (string, error) {
	raw, err := g.model.Complete(ctx, buildAutomationPrompt(req))
	if err != nil {
		return "", fmt.Errorf("generate automation script: %w", err)
	}
	script := strings.TrimSpace(StripCodeFence(raw, "python"))
	if script == "" {
		return "", fmt.Errorf("generate automation script: %w", ErrEmptyOutput)
	}
	return script + "\n", nil
}

// VoiceScript generates an SSML narration sized to req.DurationSeconds. The
// result always carries an XML declaration and a <speak> root, and contains
// none of the denylisted tags.
func (g *Generator) VoiceScript(ctx context.Context, req VoiceRequest) (string, error) {
	raw, err := g.model.Complete(ctx, buildVoicePrompt(req))
	if err != nil {
		return "", fmt.Errorf("generate voice script: %w", err)
	}
	body := strings.TrimSpace(StripCodeFence(raw, "xml"))
	if body == "" {
		return "", fmt.Errorf("generate voice script: %w", ErrEmptyOutput)
	}
	return SanitizeTags(EnsureXMLEnvelope(body), g.denylist), nil
}
