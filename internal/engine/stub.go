package engine

import (
	"context"
	"fmt"
	"strings"
)

// StubExtractor returns fixed page content (for development/testing).
type StubExtractor struct{}

func (e *StubExtractor) Extract(_ context.Context, url string) (*ExtractedContent, error) {
	text := "Stub landing page for " + url + ". Sign up, browse the dashboard, open the pricing page and read the docs."
	return &ExtractedContent{
		Title:          "Stub Product",
		NormalizedText: text,
		WordCount:      len(strings.Fields(text)),
	}, nil
}

// StubModelClient returns canned replies keyed off the prompt's role line
// (for development/testing).
type StubModelClient struct{}

func (m *StubModelClient) Complete(_ context.Context, prompt string) (string, error) {
	switch {
	case strings.HasPrefix(prompt, narrativeRole):
		return "1. Open the home page\n2. Click the Pricing link in the header\n3. Scroll to the plan comparison\n\n[Stub] The product helps teams ship demo videos.", nil

	case strings.HasPrefix(prompt, automationRole):
		return "```python\n" + stubAutomation + "```\n", nil

	case strings.HasPrefix(prompt, voiceRole):
		return "```xml\n<speak>\n<p>Welcome to this quick tour.</p>\n<break time=\"1s\"/>\n<p>Here is the pricing page.</p>\n</speak>\n```", nil
	}
	return "", fmt.Errorf("stub: unrecognised prompt")
}

const stubAutomation = `from playwright.sync_api import sync_playwright

with sync_playwright() as p:
    browser = p.chromium.launch(headless=True)
    context = browser.new_context(record_video_dir=".", record_video_size={"width": 1280, "height": 720})
    page = context.new_page()
    page.goto("https://example.com")
    page.wait_for_timeout(1500)
    context.close()
    page.video.save_as("recording.webm")
    browser.close()
`
