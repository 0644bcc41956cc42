package service

import "errors"

// Service errors.
var (
	ErrAnalysisFailed = errors.New("analysis failed")
	ErrDuplicateFrame = errors.New("duplicate frame")
	ErrQueueFull      = errors.New("frame queue full")
	ErrNoHistory      = errors.New("no history for subject")
	ErrUnknownMetric  = errors.New("unknown metric")
	ErrNotStarted     = errors.New("service not started")
)
