package pipeline

// Stage names one step of the pipeline, in execution order.
type Stage string

const (
	StageDuplicateCheck     Stage = "duplicate_check"
	StagePayload            Stage = "payload"
	StageNotifyStarted      Stage = "notify_started"
	StageExplore            Stage = "explore"
	StageNarrative          Stage = "narrative"
	StageAutomationGenerate Stage = "automation_generate"
	StageAutomationRun      Stage = "automation_run"
	StageDuration           Stage = "duration"
	StageVoiceScript        Stage = "voice_script"
	StageVoice              Stage = "voice"
	StageMux                Stage = "mux"
	StageNotifyCompleted    Stage = "notify_completed"

	// StageNotifyFailed only runs after a fatal failure.
	StageNotifyFailed Stage = "notify_failed"
)

// Result summarises one run. Completed and Degraded list stages in the
// order they finished or failed; skipped stages appear in neither.
type Result struct {
	SubmissionID string
	Duplicate    bool
	Completed    []Stage
	Degraded     []Stage
}

// Has reports whether stage completed.
func (r Result) Has(stage Stage) bool {
	for _, s := range r.Completed {
		if s == stage {
			return true
		}
	}
	return false
}

// DegradedAt reports whether stage failed and was degraded around.
func (r Result) DegradedAt(stage Stage) bool {
	for _, s := range r.Degraded {
		if s == stage {
			return true
		}
	}
	return false
}
