package geometry

import "errors"

// Sentinel kinds for geometry errors.
var (
	ErrIncompleteLandmarks = errors.New("incomplete landmarks")
	ErrDegenerateGeometry  = errors.New("degenerate geometry")
	ErrUnknownLayout       = errors.New("unknown landmark layout")
)
