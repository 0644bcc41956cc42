// Package loadgen drives a running attune service with synthetic landmark
// frames and reports throughput and outcomes.
package loadgen

import "time"

// Submission modes.
const (
	ModeAnalyze = "analyze" // POST /v1/analyze, one result per frame
	ModeSubmit  = "submit"  // POST /v1/frames, queued for the worker pool
)

// Config holds configuration for one load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Subjects   int           // Number of simulated subjects
	Frames     int           // Frames per subject
	Workers    int           // Number of concurrent senders
	Timeout    time.Duration // HTTP request timeout
	Mode       string        // ModeAnalyze or ModeSubmit
	Workflows  bool          // Run one workflow per subject after the frames
	Seed       uint64        // Seed for the face trajectories
	OutputFile string        // Optional JSON dump of the generated frames
	Verbose    bool          // Log every failed request
}

// Point is one landmark on the wire.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Frame mirrors the request body of the frame endpoints.
type Frame struct {
	FrameID   string  `json:"frame_id"`
	SubjectID string  `json:"subject_id"`
	Timestamp string  `json:"timestamp"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Landmarks []Point `json:"landmarks"`
}

// AckResponse is the reply to POST /v1/frames.
type AckResponse struct {
	FrameID   string `json:"frame_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	FramesGenerated    int
	FramesSubmitted    int
	FramesSuccessful   int
	FramesDuplicate    int
	FramesFailed       int
	WorkflowsCompleted int
	WorkflowsFailed    int
	States             map[string]int // cognitive state of each finished workflow
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
