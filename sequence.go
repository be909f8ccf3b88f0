package gesture

import (
	"math"
	"time"
)

// Sequence is the ordered history of one physical contact, from the point it
// went down until it lifted. Points are append-only; every query below is
// computed from the recorded points and tolerates partial sequences.
type Sequence struct {
	id     int
	points []TouchPoint
	now    func() time.Time
}

func newSequence(id int, now func() time.Time) *Sequence {
	if now == nil {
		now = time.Now
	}
	return &Sequence{id: id, now: now}
}

// NewSequence creates an empty sequence for the given contact id. Active
// durations are measured against the wall clock.
func NewSequence(id int) *Sequence {
	return newSequence(id, nil)
}

// ID returns the platform contact id this sequence was created for.
func (s *Sequence) ID() int { return s.id }

// Add appends p. Callers guarantee time ordering.
func (s *Sequence) Add(p TouchPoint) {
	s.points = append(s.points, p)
}

// Len returns the number of recorded points.
func (s *Sequence) Len() int { return len(s.points) }

// Points returns a copy of the recorded points in insertion order.
func (s *Sequence) Points() []TouchPoint {
	out := make([]TouchPoint, len(s.points))
	copy(out, s.points)
	return out
}

// First returns the start point.
func (s *Sequence) First() (TouchPoint, bool) {
	if len(s.points) == 0 {
		return TouchPoint{}, false
	}
	return s.points[0], true
}

// Last returns the most recent point.
func (s *Sequence) Last() (TouchPoint, bool) {
	if len(s.points) == 0 {
		return TouchPoint{}, false
	}
	return s.points[len(s.points)-1], true
}

// Ended reports whether the last point is an end point.
func (s *Sequence) Ended() bool {
	p, ok := s.Last()
	return ok && p.IsEnd
}

// Position returns the current position of the contact.
func (s *Sequence) Position() (Vec2, bool) {
	p, ok := s.Last()
	return p.Pos(), ok
}

// Diff returns the net displacement since the start point.
func (s *Sequence) Diff() (Vec2, bool) {
	first, ok := s.First()
	if !ok {
		return Vec2{}, false
	}
	last, _ := s.Last()
	return Vec2{last.X - first.X, last.Y - first.Y}, true
}

// LastDiff returns the displacement between the final two points, or zero
// when fewer than two points exist.
func (s *Sequence) LastDiff() Vec2 {
	n := len(s.points)
	if n < 2 {
		return Vec2{}
	}
	a, b := s.points[n-2], s.points[n-1]
	return Vec2{b.X - a.X, b.Y - a.Y}
}

// Slope returns Diff().Y / Diff().X, NaN for an empty sequence.
func (s *Sequence) Slope() float64 {
	d, ok := s.Diff()
	if !ok {
		return math.NaN()
	}
	return d.Y / d.X
}

// LastSlope returns LastDiff().Y / LastDiff().X.
func (s *Sequence) LastSlope() float64 {
	d := s.LastDiff()
	return d.Y / d.X
}

// Velocity returns the velocity between the last two points. When the last
// point is an end point and at least three points exist, the sample before
// the end point is used instead, since the end point repeats the final
// position and would collapse the velocity to zero.
func (s *Sequence) Velocity() Velocity {
	n := len(s.points)
	if n < 2 {
		return Velocity{}
	}
	last := s.points[n-1]
	prev := s.points[n-2]
	if n >= 3 && last.IsEnd {
		prev = s.points[n-3]
	}
	ms := millis(last.Time.Sub(prev.Time))
	if ms <= 0 {
		return Velocity{}
	}
	return Velocity{
		X:     (last.X - prev.X) / ms,
		Y:     (last.Y - prev.Y) / ms,
		Speed: Distance(last.Pos(), prev.Pos()) / ms,
	}
}

// TimeLasting returns how long the contact has been down: now minus the start
// time while active, end time minus start time once ended.
func (s *Sequence) TimeLasting() time.Duration {
	first, ok := s.First()
	if !ok {
		return 0
	}
	if s.Ended() {
		last, _ := s.Last()
		return last.Time.Sub(first.Time)
	}
	return s.now().Sub(first.Time)
}

// MaxRadius returns the largest distance from the start point reached by any
// recorded point.
func (s *Sequence) MaxRadius() float64 {
	if len(s.points) == 0 {
		return 0
	}
	origin := s.points[0].Pos()
	var max float64
	for _, p := range s.points[1:] {
		if r := Distance(origin, p.Pos()); r > max {
			max = r
		}
	}
	return max
}
