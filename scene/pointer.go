package scene

// Easing factors per frame.
const (
	EaseOverlay = 0.05
	EaseCover   = 0.08
)

// Pointer follows the mouse with easing. Coordinates are normalized to
// [0,1] with Y pointing up. One frame loop owns a Pointer: input handlers
// call Move, the loop calls Step once per frame, and renderers read X and Y.
type Pointer struct {
	X, Y    float64 // smoothed position
	targetX float64
	targetY float64
	ease    float64
}

// NewPointer starts centred with the given easing factor.
func NewPointer(ease float64) *Pointer {
	return &Pointer{X: 0.5, Y: 0.5, targetX: 0.5, targetY: 0.5, ease: ease}
}

// Move sets the target from a cell position on a width x height grid.
func (p *Pointer) Move(col, row, width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	p.targetX = clamp01(float64(col) / float64(width))
	p.targetY = clamp01(1 - float64(row)/float64(height))
}

// Target returns the position the pointer is easing toward.
func (p *Pointer) Target() (float64, float64) {
	return p.targetX, p.targetY
}

// Step advances the smoothed position one frame toward the target.
func (p *Pointer) Step() {
	p.X += (p.targetX - p.X) * p.ease
	p.Y += (p.targetY - p.Y) * p.ease
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
