package model

import (
	"path"
	"strings"
)

// ArtifactKind names one of the per-submission outputs. The presence of an
// artifact in the store is the only progress signal a submission has.
type ArtifactKind string

// Artifact kinds in pipeline order.
const (
	ArtifactPayload     ArtifactKind = "payload"
	ArtifactNarrative   ArtifactKind = "narrative"
	ArtifactAutomation  ArtifactKind = "automation"
	ArtifactVoiceScript ArtifactKind = "voice_script"
	ArtifactVoice       ArtifactKind = "voice"
	ArtifactVideo       ArtifactKind = "video"
)

// ArtifactKinds lists every kind in the order the pipeline writes them.
var ArtifactKinds = []ArtifactKind{
	ArtifactPayload,
	ArtifactNarrative,
	ArtifactAutomation,
	ArtifactVoiceScript,
	ArtifactVoice,
	ArtifactVideo,
}

// DefaultPrefix is the top-level keyspace all submissions live under.
const DefaultPrefix = "staging_area"

// Layout maps (submission, kind) pairs onto object store keys.
type Layout struct {
	Prefix string
}

// NewLayout returns a Layout, falling back to DefaultPrefix.
func NewLayout(prefix string) Layout {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Layout{Prefix: prefix}
}

// Dir returns the key prefix owned by one submission.
func (l Layout) Dir(submissionID string) string {
	return path.Join(l.prefix(), submissionID) + "/"
}

// Key returns the object key for an artifact of the given submission.
func (l Layout) Key(submissionID string, kind ArtifactKind) string {
	return l.Dir(submissionID) + FileName(submissionID, kind)
}

func (l Layout) prefix() string {
	if l.Prefix == "" {
		return DefaultPrefix
	}
	return l.Prefix
}

// FileName returns the fixed filename of an artifact kind.
func FileName(submissionID string, kind ArtifactKind) string {
	switch kind {
	case ArtifactPayload:
		return submissionID + ".json"
	case ArtifactNarrative:
		return "script.txt"
	case ArtifactAutomation:
		return "playwright.py"
	case ArtifactVoiceScript:
		return "voice_script.ssml"
	case ArtifactVoice:
		return "voice.mp3"
	case ArtifactVideo:
		return "video.webm"
	default:
		return string(kind)
	}
}

// ContentType returns the MIME type stored alongside an artifact.
func ContentType(kind ArtifactKind) string {
	switch kind {
	case ArtifactPayload:
		return "application/json"
	case ArtifactNarrative:
		return "text/plain; charset=utf-8"
	case ArtifactAutomation:
		return "text/x-python; charset=utf-8"
	case ArtifactVoiceScript:
		return "application/ssml+xml"
	case ArtifactVoice:
		return "audio/mpeg"
	case ArtifactVideo:
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}

// VideoContentType returns the MIME type of a video file by its extension.
// The stored video keeps the fixed video.webm key whatever its container.
func VideoContentType(name string) string {
	if strings.EqualFold(path.Ext(name), ".mp4") {
		return "video/mp4"
	}
	return ContentType(ArtifactVideo)
}

// IsText reports whether the status document embeds the artifact's content
// rather than linking to it.
func (k ArtifactKind) IsText() bool {
	switch k {
	case ArtifactNarrative, ArtifactAutomation, ArtifactVoiceScript:
		return true
	}
	return false
}
