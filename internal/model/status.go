package model

// Status is the flat document returned by the status endpoint. Each artifact
// kind has an existence flag plus either a time-limited link (binary
// artifacts) or its text (scripts). Errors are never reported here; a missing
// artifact is the only signal of a degraded or pending stage.
type Status struct {
	SubmissionID string `json:"submission_id"`

	PayloadExists bool `json:"payload_exists"`

	ScriptExists  bool   `json:"script_exists"`
	ScriptContent string `json:"script_content,omitempty"`

	VoiceScriptExists  bool   `json:"voice_script_exists"`
	VoiceScriptContent string `json:"voice_script_content,omitempty"`

	VoiceExists bool   `json:"voice_exists"`
	VoiceURL    string `json:"voice_url,omitempty"`

	PlaywrightExists  bool   `json:"playwright_exists"`
	PlaywrightContent string `json:"playwright_content,omitempty"`

	VideoExists bool   `json:"video_exists"`
	VideoURL    string `json:"video_url,omitempty"`
}

// Set records the existence of kind together with its link or text.
func (s *Status) Set(kind ArtifactKind, exists bool, value string) {
	switch kind {
	case ArtifactPayload:
		s.PayloadExists = exists
	case ArtifactNarrative:
		s.ScriptExists, s.ScriptContent = exists, value
	case ArtifactAutomation:
		s.PlaywrightExists, s.PlaywrightContent = exists, value
	case ArtifactVoiceScript:
		s.VoiceScriptExists, s.VoiceScriptContent = exists, value
	case ArtifactVoice:
		s.VoiceExists, s.VoiceURL = exists, value
	case ArtifactVideo:
		s.VideoExists, s.VideoURL = exists, value
	}
}

// Complete reports whether every artifact kind exists.
func (s Status) Complete() bool {
	return s.PayloadExists && s.ScriptExists && s.PlaywrightExists &&
		s.VoiceScriptExists && s.VoiceExists && s.VideoExists
}
