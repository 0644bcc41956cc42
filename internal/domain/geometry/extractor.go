package geometry

import (
	"fmt"
	"math"

	"github.com/okian/attune/internal/domain/model"
)

// Head pose bounds in degrees.
const (
	maxYaw          = 45.0
	maxPitch        = 30.0
	maxRoll         = 30.0
	facingMaxYaw    = 15.0
	facingMaxPitch  = 10.0
	pitchGain       = 2.0
	smileGain       = 4.0
	neutralBrowRise = 0.4
)

// Gaze directions.
const (
	GazeCenter = "center"
	GazeLeft   = "left"
	GazeRight  = "right"
	GazeUp     = "up"
	GazeDown   = "down"
)

// Gaze is the estimated point of visual attention and its category.
type Gaze struct {
	Point     model.Point `json:"point" msgpack:"point"`
	DX        float64     `json:"dx" msgpack:"dx"`
	DY        float64     `json:"dy" msgpack:"dy"`
	Direction string      `json:"direction" msgpack:"direction"`
	OnScreen  bool        `json:"on_screen" msgpack:"on_screen"`
}

// HeadPose holds angles in degrees. Positive pitch means looking down,
// positive yaw means the nose points toward the image right.
type HeadPose struct {
	Yaw          float64 `json:"yaw" msgpack:"yaw"`
	Pitch        float64 `json:"pitch" msgpack:"pitch"`
	Roll         float64 `json:"roll" msgpack:"roll"`
	FacingCamera bool    `json:"facing_camera" msgpack:"facing_camera"`
}

// Features is everything the extractor derives from one frame.
type Features struct {
	LeftEAR        float64  `json:"left_ear" msgpack:"left_ear"`
	RightEAR       float64  `json:"right_ear" msgpack:"right_ear"`
	MeanEAR        float64  `json:"mean_ear" msgpack:"mean_ear"`
	Blink          bool     `json:"blink" msgpack:"blink"`
	Gaze           Gaze     `json:"gaze" msgpack:"gaze"`
	Head           HeadPose `json:"head_pose" msgpack:"head_pose"`
	Symmetry       float64  `json:"symmetry" msgpack:"symmetry"`
	MouthOpenness  float64  `json:"mouth_openness" msgpack:"mouth_openness"`
	SmileIntensity float64  `json:"smile_intensity" msgpack:"smile_intensity"`
	BrowRaise      float64  `json:"brow_raise" msgpack:"brow_raise"`
	FaceArea       float64  `json:"face_area" msgpack:"face_area"` // share of the image, 0 when unknown
	InterOcular    float64  `json:"inter_ocular" msgpack:"inter_ocular"`
	Completeness   float64  `json:"completeness" msgpack:"completeness"`
}

// Extractor computes Features for a fixed layout and thresholds. It holds
// no mutable state and is safe for concurrent use.
type Extractor struct {
	layout         Layout
	blinkThreshold float64
	gazeMaxDX      float64
	gazeMaxDY      float64
	neutralNose    float64
}

// NewExtractor creates an extractor with the iBUG-68 layout by default.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		layout:         IBUG68(),
		blinkThreshold: DefaultBlinkThreshold,
		gazeMaxDX:      DefaultGazeMaxDX,
		gazeMaxDY:      DefaultGazeMaxDY,
		neutralNose:    DefaultNeutralNoseLine,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Layout returns the configured layout.
func (e *Extractor) Layout() Layout { return e.layout }

// Extract computes all features. It fails with ErrIncompleteLandmarks
// when required indices are missing.
func (e *Extractor) Extract(f *model.LandmarkFrame) (Features, error) {
	if err := e.check(f); err != nil {
		return Features{}, err
	}
	left, right, err := e.EyeRatios(f)
	if err != nil {
		return Features{}, err
	}
	head, err := e.HeadPose(f)
	if err != nil {
		return Features{}, err
	}
	lc, rc := e.eyeCentroids(f)
	iod := lc.Dist(rc)

	feat := Features{
		LeftEAR:      left,
		RightEAR:     right,
		MeanEAR:      (left + right) / 2,
		Gaze:         e.Gaze(f),
		Head:         head,
		Symmetry:     e.Symmetry(f),
		InterOcular:  iod,
		FaceArea:     faceArea(f),
		Completeness: e.completeness(f),
	}
	feat.Blink = feat.MeanEAR < e.blinkThreshold
	feat.MouthOpenness, feat.SmileIntensity = e.mouth(f, iod)
	feat.BrowRaise = e.browRaise(f, iod)
	return feat, nil
}

func (e *Extractor) check(f *model.LandmarkFrame) error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrIncompleteLandmarks)
	}
	if !f.Has(e.layout.Required()...) {
		return fmt.Errorf("%w: frame %q has %d points, layout %s needs more",
			ErrIncompleteLandmarks, f.ID, len(f.Points), e.layout.Name)
	}
	return nil
}

// EyeAspectRatio computes (|p2-p6| + |p3-p5|) / (2|p1-p4|).
func EyeAspectRatio(p [6]model.Point) (float64, error) {
	width := p[0].Dist(p[3])
	if width == 0 {
		return 0, fmt.Errorf("%w: zero eye width", ErrDegenerateGeometry)
	}
	return (p[1].Dist(p[5]) + p[2].Dist(p[4])) / (2 * width), nil
}

// EyeRatios returns the left and right EAR.
func (e *Extractor) EyeRatios(f *model.LandmarkFrame) (float64, float64, error) {
	if err := e.check(f); err != nil {
		return 0, 0, err
	}
	left, err := EyeAspectRatio(pick6(f, e.layout.LeftEye))
	if err != nil {
		return 0, 0, fmt.Errorf("left eye: %w", err)
	}
	right, err := EyeAspectRatio(pick6(f, e.layout.RightEye))
	if err != nil {
		return 0, 0, fmt.Errorf("right eye: %w", err)
	}
	return left, right, nil
}

// Gaze averages the eye centroids and categorizes the offset from the
// neutral reference. The frame must already be checked.
func (e *Extractor) Gaze(f *model.LandmarkFrame) Gaze {
	lc, rc := e.eyeCentroids(f)
	g := Gaze{Point: lc.Mid(rc)}
	ref := e.neutralReference(f)
	g.DX = g.Point.X - ref.X
	g.DY = g.Point.Y - ref.Y
	g.OnScreen = math.Abs(g.DX) < e.gazeMaxDX && math.Abs(g.DY) < e.gazeMaxDY

	nx, ny := math.Abs(g.DX)/e.gazeMaxDX, math.Abs(g.DY)/e.gazeMaxDY
	switch {
	case g.OnScreen:
		g.Direction = GazeCenter
	case nx >= ny && g.DX < 0:
		g.Direction = GazeLeft
	case nx >= ny:
		g.Direction = GazeRight
	case g.DY < 0:
		g.Direction = GazeUp
	default:
		g.Direction = GazeDown
	}
	return g
}

// HeadPose approximates yaw, pitch and roll. Roll comes from the outer
// eye-corner line; yaw and pitch are measured after levelling the face.
func (e *Extractor) HeadPose(f *model.LandmarkFrame) (HeadPose, error) {
	if err := e.check(f); err != nil {
		return HeadPose{}, err
	}
	l := e.layout
	lOuter, rOuter := f.At(l.LeftEye[0]), f.At(l.RightEye[3])
	lc, rc := e.eyeCentroids(f)
	iod := lc.Dist(rc)
	if iod == 0 {
		return HeadPose{}, fmt.Errorf("%w: eyes coincide", ErrDegenerateGeometry)
	}
	rollRad := math.Atan2(rOuter.Y-lOuter.Y, rOuter.X-lOuter.X)
	center := lc.Mid(rc)

	nose := rotate(f.At(l.NoseTip), center, -rollRad)
	mouth := rotate(f.At(l.MouthLeft).Mid(f.At(l.MouthRight)), center, -rollRad)
	span := mouth.Y - center.Y
	if span <= 0 {
		return HeadPose{}, fmt.Errorf("%w: mouth not below eyes", ErrDegenerateGeometry)
	}

	yaw := degrees(math.Atan2(nose.X-center.X, iod/2))
	ratio := (nose.Y - center.Y) / span
	pitch := degrees(math.Atan((ratio - e.neutralNose) * pitchGain))

	hp := HeadPose{
		Yaw:   model.ClampRange(yaw, -maxYaw, maxYaw),
		Pitch: model.ClampRange(pitch, -maxPitch, maxPitch),
		Roll:  model.ClampRange(degrees(rollRad), -maxRoll, maxRoll),
	}
	hp.FacingCamera = math.Abs(hp.Yaw) < facingMaxYaw && math.Abs(hp.Pitch) < facingMaxPitch
	return hp, nil
}

// Symmetry reflects one point of each mirror pair across the vertical
// midline and returns 1/(1+s), s being the mean residual distance in
// inter-ocular units. Pairs with missing indices are ignored; with no
// usable pairs the face is reported as symmetric.
func (e *Extractor) Symmetry(f *model.LandmarkFrame) float64 {
	lc, rc := e.eyeCentroids(f)
	iod := lc.Dist(rc)
	if iod == 0 {
		return 0
	}
	l := e.layout
	lOuter, rOuter := f.At(l.LeftEye[0]), f.At(l.RightEye[3])
	rollRad := math.Atan2(rOuter.Y-lOuter.Y, rOuter.X-lOuter.X)
	center := lc.Mid(rc)

	var sum float64
	var n int
	for _, pair := range l.MirrorPairs {
		if !f.Has(pair[0], pair[1]) {
			continue
		}
		a := rotate(f.At(pair[0]), center, -rollRad)
		b := rotate(f.At(pair[1]), center, -rollRad)
		reflected := model.Point{X: 2*center.X - b.X, Y: b.Y}
		sum += a.Dist(reflected)
		n++
	}
	if n == 0 {
		return 1
	}
	return 1 / (1 + sum/(float64(n)*iod))
}

func (e *Extractor) eyeCentroids(f *model.LandmarkFrame) (model.Point, model.Point) {
	return centroid(pick6(f, e.layout.LeftEye)), centroid(pick6(f, e.layout.RightEye))
}

// mouth returns openness (lip gap over mouth width) and smile intensity
// (corner lift over inter-ocular distance, scaled).
func (e *Extractor) mouth(f *model.LandmarkFrame, iod float64) (float64, float64) {
	l := e.layout
	ml, mr := f.At(l.MouthLeft), f.At(l.MouthRight)
	up, lo := f.At(l.UpperLip), f.At(l.LowerLip)
	width := ml.Dist(mr)
	var open float64
	if width > 0 {
		open = up.Dist(lo) / width
	}
	var smile float64
	if iod > 0 {
		lift := (up.Mid(lo).Y - ml.Mid(mr).Y) / iod
		smile = model.Clamp01(lift * smileGain)
	}
	return open, smile
}

// browRaise is the mean vertical eye-to-brow gap in inter-ocular units.
// Missing brows report the neutral value.
func (e *Extractor) browRaise(f *model.LandmarkFrame, iod float64) float64 {
	l := e.layout
	if iod == 0 || len(l.LeftBrow) == 0 || !f.Has(l.LeftBrow...) || !f.Has(l.RightBrow...) {
		return neutralBrowRise
	}
	lc, rc := e.eyeCentroids(f)
	lb, rb := centroidOf(f, l.LeftBrow), centroidOf(f, l.RightBrow)
	return ((lc.Y - lb.Y) + (rc.Y - rb.Y)) / 2 / iod
}

func (e *Extractor) completeness(f *model.LandmarkFrame) float64 {
	l := e.layout
	total := len(l.Required())
	present := total
	groups := [][]int{l.LeftBrow, l.RightBrow}
	for _, p := range l.MirrorPairs {
		groups = append(groups, p[:])
	}
	for _, g := range groups {
		total += len(g)
		for _, i := range g {
			if f.Has(i) {
				present++
			}
		}
	}
	return float64(present) / float64(total)
}

func pick6(f *model.LandmarkFrame, idx [6]int) [6]model.Point {
	var out [6]model.Point
	for i, j := range idx {
		out[i] = f.At(j)
	}
	return out
}

func centroid(p [6]model.Point) model.Point {
	var c model.Point
	for _, q := range p {
		c.X += q.X
		c.Y += q.Y
	}
	return model.Point{X: c.X / 6, Y: c.Y / 6}
}

func centroidOf(f *model.LandmarkFrame, idx []int) model.Point {
	var c model.Point
	for _, i := range idx {
		c.X += f.At(i).X
		c.Y += f.At(i).Y
	}
	n := float64(len(idx))
	return model.Point{X: c.X / n, Y: c.Y / n}
}

// neutralReference is the image centre when the frame size is known,
// otherwise the nose-tip column at eye height, so the delta measures how
// far the eyes sit off the face axis.
func (e *Extractor) neutralReference(f *model.LandmarkFrame) model.Point {
	if f.Width > 0 && f.Height > 0 {
		return model.Point{X: f.Width / 2, Y: f.Height / 2}
	}
	lc, rc := e.eyeCentroids(f)
	return model.Point{X: f.At(e.layout.NoseTip).X, Y: lc.Mid(rc).Y}
}

func faceArea(f *model.LandmarkFrame) float64 {
	if f.Width <= 0 || f.Height <= 0 {
		return 0
	}
	minP, maxP := bounds(f.Points)
	return model.Clamp01((maxP.X - minP.X) * (maxP.Y - minP.Y) / (f.Width * f.Height))
}

func bounds(pts []model.Point) (model.Point, model.Point) {
	if len(pts) == 0 {
		return model.Point{}, model.Point{}
	}
	minP, maxP := pts[0], pts[0]
	for _, p := range pts[1:] {
		minP.X, minP.Y = math.Min(minP.X, p.X), math.Min(minP.Y, p.Y)
		maxP.X, maxP.Y = math.Max(maxP.X, p.X), math.Max(maxP.Y, p.Y)
	}
	return minP, maxP
}

func rotate(p, c model.Point, rad float64) model.Point {
	s, co := math.Sin(rad), math.Cos(rad)
	dx, dy := p.X-c.X, p.Y-c.Y
	return model.Point{X: c.X + dx*co - dy*s, Y: c.Y + dx*s + dy*co}
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
