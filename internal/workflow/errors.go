package workflow

import "errors"

// Workflow errors.
var (
	ErrStepFailed   = errors.New("workflow step failed")
	ErrRunNotFound  = errors.New("workflow run not found")
	ErrRunFinished  = errors.New("workflow run already finished")
	ErrInvalidInput = errors.New("invalid workflow input")
	ErrNoAnalysis   = errors.New("state analysis unavailable")
)
