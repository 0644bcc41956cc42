package geometry

// Default extraction thresholds.
const (
	DefaultBlinkThreshold  = 0.25
	DefaultGazeMaxDX       = 30.0
	DefaultGazeMaxDY       = 25.0
	DefaultNeutralNoseLine = 0.55
)

// Option applies a configuration option to the Extractor.
type Option func(*Extractor)

// WithLayout selects the landmark index scheme.
func WithLayout(l Layout) Option {
	return func(e *Extractor) {
		if l.Name != "" {
			e.layout = l
		}
	}
}

// WithBlinkThreshold sets the mean EAR below which a blink is flagged.
func WithBlinkThreshold(t float64) Option {
	return func(e *Extractor) {
		if t > 0 {
			e.blinkThreshold = t
		}
	}
}

// WithGazeBounds sets the on-screen deltas in landmark units.
func WithGazeBounds(dx, dy float64) Option {
	return func(e *Extractor) {
		if dx > 0 && dy > 0 {
			e.gazeMaxDX = dx
			e.gazeMaxDY = dy
		}
	}
}

// WithNeutralNoseLine sets where the nose tip sits between the eye line
// (0) and the mouth line (1) for a level head.
func WithNeutralNoseLine(r float64) Option {
	return func(e *Extractor) {
		if r > 0 && r < 1 {
			e.neutralNose = r
		}
	}
}
