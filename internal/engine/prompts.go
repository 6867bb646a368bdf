package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Leading lines of each prompt. The stub model keys its canned replies off
// them.
const (
	narrativeRole  = "You are a product demo scout exploring a website."
	automationRole = "You are a Playwright automation engineer."
	voiceRole      = "You are a voice-over writer for product demo videos."
)

// DefaultMaxActions is the action budget given to exploration.
const DefaultMaxActions = 8

func buildNarrativePrompt(req ExploreRequest, pageText string) string {
	maxActions := req.MaxActions
	if maxActions <= 0 {
		maxActions = DefaultMaxActions
	}

	var sb strings.Builder
	sb.WriteString(narrativeRole)
	fmt.Fprintf(&sb, "\n\nExplore %s and write the script of a short demo video of the product.\n", req.URL)
	if req.Directions != "" {
		fmt.Fprintf(&sb, "\nThe requester asked for: %s\n", req.Directions)
	}
	if req.Username != "" && req.Password != "" {
		fmt.Fprintf(&sb, "\nLog in with username %q and password %q before exploring.\n", req.Username, req.Password)
	}
	fmt.Fprintf(&sb, `
Rules:
- Stop after %d actions.
- Number each action, one per line, e.g. "1. Click the Pricing link in the header".
- Name every element by its visible text so the steps can be replayed.
- After the actions, add one short paragraph describing what the product does.
- Output plain text only, no markdown.
`, maxActions)
	if pageText != "" {
		fmt.Fprintf(&sb, "\nPage content:\n%s\n", truncateRunes(pageText, 12000))
	}
	return sb.String()
}

func buildAutomationPrompt(req AutomationRequest) string {
	var sb strings.Builder
	sb.WriteString(automationRole)
	fmt.Fprintf(&sb, `

Write a Python script using playwright.sync_api that replays the demo below against %s and records a video of it.

Requirements:
- Launch Chromium headless with a 1280x720 viewport.
- Create the context with record_video_dir="." and record_video_size 1280x720.
- Wait for each page to settle and pause about 1.5 seconds between actions so viewers can follow.
- Wrap each action in try/except so one missing element does not end the recording.
- Close the context, then save the page video as "%s" in the current directory with page.video.save_as.
- Output only the script in a single python code block.
`, req.URL, "recording.webm")
	if req.Username != "" && req.Password != "" {
		fmt.Fprintf(&sb, "\nLog in first with username %q and password %q.\n", req.Username, req.Password)
	}
	if req.Directions != "" {
		fmt.Fprintf(&sb, "\nAdditional directions: %s\n", req.Directions)
	}
	fmt.Fprintf(&sb, "\nDemo script:\n%s\n", truncateRunes(req.Narrative, 8000))
	return sb.String()
}

func buildVoicePrompt(req VoiceRequest) string {
	minWords, maxWords := WordTarget(req.DurationSeconds)
	tone := "Keep a clear, friendly and professional tone."
	if req.Humorous {
		tone = "Use a playful, humorous tone with light jokes, while keeping the product facts accurate."
	}

	var sb strings.Builder
	sb.WriteString(voiceRole)
	fmt.Fprintf(&sb, `

Write the narration for a %.0f second demo video of %s.

Rules:
- Between %.0f and %.0f words of spoken text.
- %s
- Output an SSML document with a single <speak> root element.
- Use only <speak>, <p>, <s>, <break> and <prosody> tags.
- Use <break time="..."/> to leave room for slow page loads.
- Output only the SSML document, no explanation.
`, req.DurationSeconds, req.URL, minWords, maxWords, tone)
	fmt.Fprintf(&sb, "\nDemo script:\n%s\n", truncateRunes(req.Narrative, 8000))
	if req.Automation != "" {
		fmt.Fprintf(&sb, "\nThe video is recorded by this automation script; match the narration to its steps and pauses:\n%s\n", truncateRunes(req.Automation, 8000))
	}
	return sb.String()
}

func truncateRunes(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "\n... [truncated]"
}
