package modelserving

import (
	"github.com/okian/attune/internal/domain/geometry"
	"github.com/okian/attune/internal/domain/model"
)

// ScoreRequest is the body posted to a model endpoint.
type ScoreRequest struct {
	SubjectID string             `json:"subject_id" msgpack:"subject_id"`
	FrameID   string             `json:"frame_id" msgpack:"frame_id"`
	Metrics   []model.Metric     `json:"metrics" msgpack:"metrics"`
	Features  *geometry.Features `json:"features,omitempty" msgpack:"features,omitempty"`
	Points    []model.Point      `json:"points,omitempty" msgpack:"points,omitempty"`
}

// Score is one metric in a model response.
type Score struct {
	Metric       model.Metric       `json:"metric" msgpack:"metric"`
	Value        float64            `json:"value" msgpack:"value"`
	Distribution map[string]float64 `json:"distribution,omitempty" msgpack:"distribution,omitempty"`
	Confidence   float64            `json:"confidence" msgpack:"confidence"`
}

// ScoreResponse is what a model endpoint returns.
type ScoreResponse struct {
	Model  string  `json:"model" msgpack:"model"`
	Scores []Score `json:"scores" msgpack:"scores"`
}

func (s Score) estimate(role model.Role, id string) model.ModelEstimate {
	if s.Metric == model.MetricEmotion {
		return model.AvailableDistribution(role, id, s.Distribution, s.Confidence)
	}
	return model.Available(role, id, s.Metric, s.Value, s.Confidence)
}
