// Package geometry computes facial geometry features from landmark frames.
//
// All functions are pure: they read a frame and a layout and return
// values, never touching shared state.
package geometry

import "fmt"

// Layout maps semantic facial regions onto landmark indices. Left and
// right refer to the image, not the subject.
type Layout struct {
	Name string

	// Eyes in p1..p6 order: p1 and p4 are the horizontal corners,
	// (p2,p6) and (p3,p5) the vertical pairs.
	LeftEye  [6]int
	RightEye [6]int

	NoseBridge int
	NoseTip    int

	MouthLeft  int
	MouthRight int
	UpperLip   int
	LowerLip   int

	// Optional groups; frames missing them still extract with lower
	// completeness.
	LeftBrow    []int
	RightBrow   []int
	MirrorPairs [][2]int
}

// Layout names accepted by ByName.
const (
	LayoutIBUG68    = "ibug68"
	LayoutMediaPipe = "mediapipe"
)

// IBUG68 is the 68-point dlib/iBUG annotation scheme.
func IBUG68() Layout {
	pairs := [][2]int{
		// eyes
		{36, 45}, {37, 44}, {38, 43}, {39, 42}, {40, 47}, {41, 46},
		// brows
		{17, 26}, {18, 25}, {19, 24}, {20, 23}, {21, 22},
		// nose wings
		{31, 35}, {32, 34},
		// mouth
		{48, 54}, {49, 53}, {50, 52}, {59, 55}, {58, 56}, {60, 64}, {61, 63}, {67, 65},
	}
	for i := 0; i < 8; i++ {
		pairs = append(pairs, [2]int{i, 16 - i})
	}
	return Layout{
		Name:        LayoutIBUG68,
		LeftEye:     [6]int{36, 37, 38, 39, 40, 41},
		RightEye:    [6]int{42, 43, 44, 45, 46, 47},
		NoseBridge:  27,
		NoseTip:     30,
		MouthLeft:   48,
		MouthRight:  54,
		UpperLip:    51,
		LowerLip:    57,
		LeftBrow:    []int{17, 18, 19, 20, 21},
		RightBrow:   []int{22, 23, 24, 25, 26},
		MirrorPairs: pairs,
	}
}

// MediaPipe is the 468-point face mesh.
func MediaPipe() Layout {
	return Layout{
		Name:       LayoutMediaPipe,
		LeftEye:    [6]int{33, 160, 158, 133, 153, 144},
		RightEye:   [6]int{362, 385, 387, 263, 373, 380},
		NoseBridge: 6,
		NoseTip:    1,
		MouthLeft:  61,
		MouthRight: 291,
		UpperLip:   0,
		LowerLip:   17,
		LeftBrow:   []int{70, 63, 105, 66, 107},
		RightBrow:  []int{300, 293, 334, 296, 336},
		MirrorPairs: [][2]int{
			{33, 263}, {160, 387}, {158, 385}, {133, 362}, {153, 380}, {144, 373},
			{70, 300}, {63, 293}, {105, 334}, {66, 296}, {107, 336},
			{61, 291},
			{234, 454}, {93, 323}, {132, 361}, {58, 288}, {172, 397},
			{136, 365}, {150, 379}, {149, 378}, {176, 400}, {148, 377},
		},
	}
}

// ByName resolves a configured layout name.
func ByName(name string) (Layout, error) {
	switch name {
	case "", LayoutIBUG68:
		return IBUG68(), nil
	case LayoutMediaPipe:
		return MediaPipe(), nil
	default:
		return Layout{}, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
	}
}

// Required lists the indices without which no features can be computed.
func (l Layout) Required() []int {
	idx := make([]int, 0, 18)
	idx = append(idx, l.LeftEye[:]...)
	idx = append(idx, l.RightEye[:]...)
	return append(idx, l.NoseBridge, l.NoseTip, l.MouthLeft, l.MouthRight, l.UpperLip, l.LowerLip)
}
