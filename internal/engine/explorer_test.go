package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeInvoker struct {
	sessionID string
	payload   any
	reply     string
	err       error
}

func (f *fakeInvoker) Invoke(_ context.Context, sessionID string, payload any) (string, error) {
	f.sessionID = sessionID
	f.payload = payload
	return f.reply, f.err
}

func TestAgentExplorer(t *testing.T) {
	inv := &fakeInvoker{reply: "  1. Open the page\n"}
	e := NewAgentExplorer(inv)

	got, err := e.Explore(context.Background(), ExploreRequest{
		SessionID:  "session-0123456789-0123456789-0123",
		URL:        "https://example.com",
		Directions: "focus on pricing",
		MaxActions: 5,
	})
	if err != nil {
		t.Fatalf("Explore: %v", err)
	}
	if got != "1. Open the page" {
		t.Errorf("narrative = %q", got)
	}
	if inv.sessionID != "session-0123456789-0123456789-0123" {
		t.Errorf("sessionID = %q", inv.sessionID)
	}
	p, ok := inv.payload.(agentPayload)
	if !ok {
		t.Fatalf("payload = %T", inv.payload)
	}
	for _, want := range []string{"https://example.com", "focus on pricing", "Stop after 5 actions"} {
		if !strings.Contains(p.Prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestAgentExplorer_Errors(t *testing.T) {
	boom := errors.New("runtime unavailable")
	_, err := NewAgentExplorer(&fakeInvoker{err: boom}).Explore(context.Background(), ExploreRequest{URL: "https://x.test"})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped invoke error", err)
	}

	_, err = NewAgentExplorer(&fakeInvoker{reply: "   "}).Explore(context.Background(), ExploreRequest{URL: "https://x.test"})
	if !errors.Is(err, ErrEmptyOutput) {
		t.Errorf("err = %v, want ErrEmptyOutput", err)
	}
}

func TestNarrativePrompt_Credentials(t *testing.T) {
	p := buildNarrativePrompt(ExploreRequest{URL: "https://x.test", Username: "u", Password: "p"}, "")
	if !strings.Contains(p, `username "u"`) {
		t.Error("prompt should carry credentials")
	}
	if !strings.Contains(p, "Stop after 8 actions") {
		t.Error("prompt should use the default action budget")
	}

	p = buildNarrativePrompt(ExploreRequest{URL: "https://x.test", Username: "u"}, "")
	if strings.Contains(p, "Log in") {
		t.Error("incomplete credentials must not be sent")
	}
}

type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, string) (*ExtractedContent, error) {
	return nil, errors.New("HTTP 403")
}

func TestPageExplorer(t *testing.T) {
	m := &recordingModel{reply: "1. Click Sign up"}
	e := NewPageExplorer(&StubExtractor{}, m)

	got, err := e.Explore(context.Background(), ExploreRequest{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("Explore: %v", err)
	}
	if got != "1. Click Sign up" {
		t.Errorf("narrative = %q", got)
	}
	if !strings.Contains(m.prompts[0], "Stub landing page") {
		t.Error("prompt should include extracted page text")
	}
}

func TestPageExplorer_ExtractFailure(t *testing.T) {
	m := &recordingModel{reply: "unused"}
	_, err := NewPageExplorer(failingExtractor{}, m).Explore(context.Background(), ExploreRequest{URL: "https://example.com"})
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("err = %v, want extraction error", err)
	}
	if len(m.prompts) != 0 {
		t.Error("model should not be called when extraction fails")
	}
}
