package model

import "encoding/json"

// ErrorInfo holds structured failure information for a submission.
type ErrorInfo struct {
	SubmissionID string `json:"submission_id"`
	FailedStep   string `json:"failed_step"`
	Message      string `json:"message"`
	FailedAt     string `json:"failed_at"`
}

// ToJSON serializes ErrorInfo to a JSON string.
func (e ErrorInfo) ToJSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}
