package model

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Tone selects the narration style of the voice script.
type Tone string

const (
	ToneStandard Tone = "standard"
	ToneHumorous Tone = "humorous"
)

// ParseTone maps a form value onto a Tone. Anything unrecognised is standard.
func ParseTone(s string) Tone {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "humorous", "funny", "humor", "true", "on", "1":
		return ToneHumorous
	default:
		return ToneStandard
	}
}

// Submission is one end-to-end request to produce a demo video for a URL.
// It is immutable once created; a retry always gets a fresh ID.
type Submission struct {
	ID           string `json:"submission_id"`
	ProductURL   string `json:"product_url"`
	Directions   string `json:"directions"`
	Email        string `json:"email,omitempty"`
	TestUsername string `json:"test_username,omitempty"`
	TestPassword string `json:"test_password,omitempty"`
	Tone         Tone   `json:"tone"`
	CreatedAt    string `json:"created_at"`
}

// NewSubmission creates a Submission stamped with the current time.
func NewSubmission(id, productURL, directions string) Submission {
	return Submission{
		ID:         id,
		ProductURL: strings.TrimSpace(productURL),
		Directions: strings.TrimSpace(directions),
		Tone:       ToneStandard,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
}

// HasCredentials reports whether test login credentials were supplied.
func (s Submission) HasCredentials() bool {
	return s.TestUsername != "" && s.TestPassword != ""
}

// Humorous reports whether the humorous narration tone was requested.
func (s Submission) Humorous() bool {
	return s.Tone == ToneHumorous
}

var (
	ErrMissingURL = errors.New("product_url is required")
	ErrInvalidURL = errors.New("product_url must be an absolute http(s) URL")
)

// Validate checks the fields a submission cannot be processed without.
func (s Submission) Validate() error {
	if s.ProductURL == "" {
		return ErrMissingURL
	}
	u, err := url.Parse(s.ProductURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidURL
	}
	return nil
}
