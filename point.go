package gesture

import (
	"math"
	"time"
)

// Vec2 is a 2D vector used for positions, displacements and directions
// throughout the API.
type Vec2 struct {
	X, Y float64
}

// TouchPoint is one recorded sample of a contact. Points are values and are
// never modified once added to a Sequence.
type TouchPoint struct {
	X, Y    float64
	Time    time.Time
	IsStart bool // first point of its sequence
	IsEnd   bool // contact lifted or was cancelled
	// Order numbers the point among all points of its episode, across
	// contacts, starting at 0.
	Order int
}

// Pos returns the point's position.
func (p TouchPoint) Pos() Vec2 {
	return Vec2{p.X, p.Y}
}

// Velocity is a contact's instantaneous velocity in pixels per millisecond.
type Velocity struct {
	X, Y  float64
	Speed float64
}

// Distance returns the euclidean distance between a and b.
func Distance(a, b Vec2) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
