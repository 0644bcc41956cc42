package geometry

import (
	"math"

	"github.com/okian/attune/internal/domain/model"
)

// FaceParams drives SynthesizeIBUG68. Distances are in inter-ocular
// units before Scale is applied.
type FaceParams struct {
	CenterX, CenterY float64 // where the midpoint between the eyes lands
	Scale            float64 // pixels per inter-ocular distance
	EyeOpenness      float64 // target EAR for both eyes
	NoseShiftX       float64 // lateral nose offset, turns yaw
	NoseShiftY       float64 // vertical nose offset, turns pitch
	RollDeg          float64
	MouthOpen        float64
	Smile            float64 // corner lift
	BrowLift         float64
}

// DefaultFace is a level, open-eyed, neutral face centred in a 640x480
// image.
func DefaultFace() FaceParams {
	return FaceParams{CenterX: 320, CenterY: 240, Scale: 100, EyeOpenness: 0.3}
}

const (
	eyeHalfWidth = 0.15
	mouthLine    = 0.8
)

// SynthesizeIBUG68 renders a 68-point face. It is bilaterally symmetric
// unless NoseShiftX is set, so it doubles as a geometry fixture.
func SynthesizeIBUG68(p FaceParams) []model.Point {
	pts := make([]model.Point, 68)

	for i := 0; i <= 16; i++ {
		t := math.Pi * float64(i) / 16
		pts[i] = model.Point{X: -math.Cos(t), Y: 1.2 * math.Sin(t)}
	}

	browX := []float64{-0.9, -0.75, -0.55, -0.4, -0.25}
	browY := []float64{-0.35, -0.42, -0.45, -0.42, -0.37}
	for i := range browX {
		pts[17+i] = model.Point{X: browX[i], Y: browY[i] - p.BrowLift}
		pts[26-i] = model.Point{X: -browX[i], Y: browY[i] - p.BrowLift}
	}

	w := eyeHalfWidth
	h := p.EyeOpenness * w
	eye := func(cx float64) [6]model.Point {
		return [6]model.Point{
			{X: cx - w, Y: 0}, {X: cx - w/3, Y: -h}, {X: cx + w/3, Y: -h},
			{X: cx + w, Y: 0}, {X: cx + w/3, Y: h}, {X: cx - w/3, Y: h},
		}
	}
	le, re := eye(-0.5), eye(0.5)
	copy(pts[36:42], le[:])
	copy(pts[42:48], re[:])

	bridgeY := []float64{-0.05, 0.1, 0.27, 0.44}
	for i, y := range bridgeY {
		shift := p.NoseShiftX * float64(i+1) / float64(len(bridgeY))
		pts[27+i] = model.Point{X: shift, Y: y + p.NoseShiftY*float64(i)/3}
	}
	for i, x := range []float64{-0.2, -0.1, 0, 0.1, 0.2} {
		pts[31+i] = model.Point{X: x + p.NoseShiftX, Y: 0.52 + p.NoseShiftY}
	}

	y0 := mouthLine
	open := p.MouthOpen
	outer := []model.Point{
		{X: -0.4, Y: y0 - p.Smile}, {X: -0.25, Y: y0 - 0.06}, {X: -0.1, Y: y0 - 0.08},
		{X: 0, Y: y0 - 0.06}, {X: 0.1, Y: y0 - 0.08}, {X: 0.25, Y: y0 - 0.06},
		{X: 0.4, Y: y0 - p.Smile}, {X: 0.25, Y: y0 + 0.08 + open}, {X: 0.1, Y: y0 + 0.1 + open},
		{X: 0, Y: y0 + 0.11 + open}, {X: -0.1, Y: y0 + 0.1 + open}, {X: -0.25, Y: y0 + 0.08 + open},
	}
	copy(pts[48:60], outer)
	inner := []model.Point{
		{X: -0.3, Y: y0}, {X: -0.1, Y: y0 - 0.03}, {X: 0, Y: y0 - 0.03}, {X: 0.1, Y: y0 - 0.03},
		{X: 0.3, Y: y0}, {X: 0.1, Y: y0 + 0.03 + open}, {X: 0, Y: y0 + 0.03 + open}, {X: -0.1, Y: y0 + 0.03 + open},
	}
	copy(pts[60:68], inner)

	rad := p.RollDeg * math.Pi / 180
	scale := p.Scale
	if scale == 0 {
		scale = 1
	}
	for i, q := range pts {
		r := rotate(q, model.Point{}, rad)
		pts[i] = model.Point{X: p.CenterX + r.X*scale, Y: p.CenterY + r.Y*scale}
	}
	return pts
}
