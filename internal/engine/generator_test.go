package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// recordingModel returns a fixed reply and records the prompts it saw.
type recordingModel struct {
	reply   string
	err     error
	prompts []string
}

func (m *recordingModel) Complete(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.reply, m.err
}

func TestAutomationScript(t *testing.T) {
	m := &recordingModel{reply: "Sure!\n```python\nfrom playwright.sync_api import sync_playwright\n```\n"}
	g := NewGenerator(m, nil)

	got, err := g.AutomationScript(context.Background(), AutomationRequest{
		Narrative: "1. Click Pricing",
		URL:       "https://example.com",
		Username:  "demo",
		Password:  "pw",
	})
	if err != nil {
		t.Fatalf("AutomationScript: %v", err)
	}
	if got != "from playwright.sync_api import sync_playwright\n" {
		t.Errorf("script = %q", got)
	}
	if len(m.prompts) != 1 {
		t.Fatalf("model called %d times, want 1", len(m.prompts))
	}
	p := m.prompts[0]
	for _, want := range []string{"https://example.com", "1. Click Pricing", "recording.webm", `"demo"`} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestAutomationScript_Errors(t *testing.T) {
	boom := errors.New("rate limited")
	g := NewGenerator(&recordingModel{err: boom}, nil)
	if _, err := g.AutomationScript(context.Background(), AutomationRequest{}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped model error", err)
	}

	g = NewGenerator(&recordingModel{reply: "```python\n\n```"}, nil)
	if _, err := g.AutomationScript(context.Background(), AutomationRequest{}); !errors.Is(err, ErrEmptyOutput) {
		t.Errorf("err = %v, want ErrEmptyOutput", err)
	}
}

func TestVoiceScript_PostProcessing(t *testing.T) {
	m := &recordingModel{reply: "```xml\n<p>Hello <emphasis>world</emphasis>.</p>\n```"}
	g := NewGenerator(m, nil)

	got, err := g.VoiceScript(context.Background(), VoiceRequest{
		Narrative:       "1. Open home",
		URL:             "https://example.com",
		DurationSeconds: 60,
	})
	if err != nil {
		t.Fatalf("VoiceScript: %v", err)
	}
	want := "<?xml version=\"1.0\"?>\n<speak>\n<p>Hello world.</p>\n</speak>"
	if got != want {
		t.Errorf("VoiceScript =\n%q\nwant\n%q", got, want)
	}
}

func TestVoiceScript_Prompt(t *testing.T) {
	m := &recordingModel{reply: "<speak>hi</speak>"}
	g := NewGenerator(m, nil)

	_, err := g.VoiceScript(context.Background(), VoiceRequest{
		Narrative:       "1. Open home",
		URL:             "https://example.com",
		DurationSeconds: 120,
		Humorous:        true,
		Automation:      "page.goto('https://example.com')",
	})
	if err != nil {
		t.Fatalf("VoiceScript: %v", err)
	}
	p := m.prompts[0]
	for _, want := range []string{"Between 260 and 300 words", "humorous", "page.goto", "120 second"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestVoiceScript_StandardToneWithoutAutomation(t *testing.T) {
	m := &recordingModel{reply: "<speak>hi</speak>"}
	g := NewGenerator(m, nil)

	if _, err := g.VoiceScript(context.Background(), VoiceRequest{Narrative: "n", DurationSeconds: 60}); err != nil {
		t.Fatalf("VoiceScript: %v", err)
	}
	p := m.prompts[0]
	if strings.Contains(p, "humorous") {
		t.Error("standard tone prompt should not ask for humor")
	}
	if strings.Contains(p, "automation script") {
		t.Error("prompt should not reference a missing automation script")
	}
}

func TestVoiceScript_CustomDenylist(t *testing.T) {
	m := &recordingModel{reply: "<speak><prosody rate=\"slow\">x</prosody><emphasis>y</emphasis></speak>"}
	g := NewGenerator(m, []string{"prosody"})

	got, err := g.VoiceScript(context.Background(), VoiceRequest{DurationSeconds: 30})
	if err != nil {
		t.Fatalf("VoiceScript: %v", err)
	}
	if strings.Contains(got, "prosody") || !strings.Contains(got, "<emphasis>y</emphasis>") {
		t.Errorf("VoiceScript = %q", got)
	}
}

func TestStubModelClient_KnowsEveryPrompt(t *testing.T) {
	g := NewGenerator(&StubModelClient{}, nil)
	ctx := context.Background()

	script, err := g.AutomationScript(ctx, AutomationRequest{URL: "https://example.com"})
	if err != nil || !strings.Contains(script, "recording.webm") {
		t.Errorf("AutomationScript = %q, %v", script, err)
	}
	voice, err := g.VoiceScript(ctx, VoiceRequest{DurationSeconds: 60})
	if err != nil || !strings.HasPrefix(voice, "<?xml") {
		t.Errorf("VoiceScript = %q, %v", voice, err)
	}
	narrative, err := NewPageExplorer(&StubExtractor{}, &StubModelClient{}).Explore(ctx, ExploreRequest{URL: "https://example.com"})
	if err != nil || narrative == "" {
		t.Errorf("Explore = %q, %v", narrative, err)
	}
}
