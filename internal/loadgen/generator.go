package loadgen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/attune/internal/domain/geometry"
	"github.com/okian/attune/pkg/logger"
)

// Frame geometry constants.
const (
	frameWidth    = 640
	frameHeight   = 480
	frameInterval = 33 * time.Millisecond
)

// Random-walk bounds for the face trajectory.
const (
	eyeMin           = 0.12
	eyeMax           = 0.34
	eyeStep          = 0.02
	noseMax          = 0.25
	noseStep         = 0.03
	smileMax         = 0.08
	mouthOpenMax     = 0.1
	browLiftMax      = 0.06
	blinkProbability = 0.05
	blinkEyeOpenness = 0.08
	driftProbability = 0.1
)

// generateFrames renders Frames trajectories for each subject. The same
// seed always produces the same landmarks; frame ids are fresh uuids.
func generateFrames(ctx context.Context, cfg *Config, stats *Stats) ([]Frame, error) {
	logger.Get().Info(ctx, "generating frames",
		logger.Int("subjects", cfg.Subjects),
		logger.Int("framesPerSubject", cfg.Frames))

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	start := time.Now().UTC()
	frames := make([]Frame, 0, cfg.Subjects*cfg.Frames)

	for s := range cfg.Subjects {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during frame generation: %w", err)
		}
		subject := fmt.Sprintf("subject-%03d", s)
		face := geometry.DefaultFace()
		for i := range cfg.Frames {
			step(rng, &face)
			p := face
			if rng.Float64() < blinkProbability {
				p.EyeOpenness = blinkEyeOpenness
			}
			frames = append(frames, render(subject, start.Add(time.Duration(i)*frameInterval), p))
		}
	}

	stats.FramesGenerated = len(frames)
	logger.Get().Info(ctx, "generated frames successfully", logger.Int("count", len(frames)))
	return frames, nil
}

// step moves the face one tick along its random walk.
func step(rng *rand.Rand, f *geometry.FaceParams) {
	f.EyeOpenness = clamp(f.EyeOpenness+(rng.Float64()*2-1)*eyeStep, eyeMin, eyeMax)
	f.NoseShiftX = clamp(f.NoseShiftX+(rng.Float64()*2-1)*noseStep, -noseMax, noseMax)
	if rng.Float64() < driftProbability {
		f.NoseShiftY = clamp(f.NoseShiftY+(rng.Float64()*2-1)*noseStep, -noseMax, noseMax)
	}
	f.Smile = rng.Float64() * smileMax
	f.MouthOpen = rng.Float64() * mouthOpenMax
	f.BrowLift = rng.Float64() * browLiftMax
}

func render(subject string, ts time.Time, p geometry.FaceParams) Frame {
	pts := geometry.SynthesizeIBUG68(p)
	landmarks := make([]Point, len(pts))
	for i, pt := range pts {
		landmarks[i] = Point{X: pt.X, Y: pt.Y}
	}
	return Frame{
		FrameID:   uuid.NewString(),
		SubjectID: subject,
		Timestamp: ts.Format(time.RFC3339Nano),
		Width:     frameWidth,
		Height:    frameHeight,
		Landmarks: landmarks,
	}
}

func clamp(v, lo, hi float64) float64 { return max(lo, min(hi, v)) }
