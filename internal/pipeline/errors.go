package pipeline

// StepError wraps an error with the stage that failed.
type StepError struct {
	Step Stage
	Err  error
}

func (e *StepError) Error() string {
	return string(e.Step) + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepName returns the failed stage.
func (e *StepError) StepName() string {
	return string(e.Step)
}
