package model

import "errors"

// Sentinel kinds shared across domain packages.
var (
	ErrModelUnavailable = errors.New("model unavailable")
	ErrInvalidFrame     = errors.New("invalid frame")
)
