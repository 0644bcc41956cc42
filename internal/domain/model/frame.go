// Package model contains domain models passed between layers.
package model

import (
	"math"
	"time"
)

// Point is a 2D landmark coordinate.
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Mid returns the midpoint of p and q.
func (p Point) Mid(q Point) Point {
	return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
}

// LandmarkFrame is one frame of facial landmarks produced upstream.
// Points are indexed by the active geometry layout.
type LandmarkFrame struct {
	ID        string    // unique frame id for idempotency
	SubjectID string    // who the face belongs to
	Timestamp time.Time // capture time
	Width     float64   // image width in landmark units, 0 if unknown
	Height    float64   // image height in landmark units, 0 if unknown
	Points    []Point
}

// Has reports whether the frame carries every index in idx.
func (f *LandmarkFrame) Has(idx ...int) bool {
	for _, i := range idx {
		if i < 0 || i >= len(f.Points) {
			return false
		}
	}
	return true
}

// At returns the point at index i. Callers check Has first.
func (f *LandmarkFrame) At(i int) Point {
	return f.Points[i]
}
