package engine

import "context"

// ModelClient abstracts LLM calls. Implementations can wrap OpenAI, local models, etc.
type ModelClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ContentExtractor abstracts web content extraction.
type ContentExtractor interface {
	Extract(ctx context.Context, url string) (*ExtractedContent, error)
}

// ExtractedContent holds the result of content extraction.
type ExtractedContent struct {
	Title          string `json:"title,omitempty"`
	NormalizedText string `json:"normalized_text"`
	WordCount      int    `json:"word_count"`
}

// Explorer walks a product website and describes a demo of it as a
// plain-text narrative script.
type Explorer interface {
	Explore(ctx context.Context, req ExploreRequest) (string, error)
}

// ExploreRequest carries everything an exploration needs. SessionID is the
// submission ID.
type ExploreRequest struct {
	SessionID  string
	URL        string
	Directions string
	Username   string
	Password   string
	MaxActions int
}

// AutomationRequest is the input of the automation-script generator.
type AutomationRequest struct {
	Narrative  string
	URL        string
	Directions string
	Username   string
	Password   string
}

// VoiceRequest is the input of the voice-script generator. Automation is
// optional and used only for pacing.
type VoiceRequest struct {
	Narrative       string
	URL             string
	DurationSeconds float64
	Humorous        bool
	Automation      string
}
