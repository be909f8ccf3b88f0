package gesture

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Fling continues a released contact's motion, decelerating from its release
// velocity to rest. Create one with NewFling from a listener that recognized
// a swipe or the end of a pan, and call Update(dt) each frame.
//
// There is no global animation manager; callers drive Update themselves.
type Fling struct {
	tweens [2]*gween.Tween
	X, Y   float64
	Done   bool
}

// NewFling builds a fling starting at the sequence's last position and
// travelling for duration seconds. The travel distance is the distance the
// release velocity would cover in duration at constant speed, scaled by
// friction (0..1]; the easing function shapes the deceleration and defaults
// to ease.OutCubic.
func NewFling(seq *Sequence, duration float32, friction float64, fn ease.TweenFunc) *Fling {
	if fn == nil {
		fn = ease.OutCubic
	}
	if friction <= 0 || friction > 1 {
		friction = 1
	}
	pos, _ := seq.Position()
	v := seq.Velocity()

	// Velocity is per millisecond; duration is in seconds.
	ms := float64(duration) * 1000
	toX := pos.X + v.X*ms*friction
	toY := pos.Y + v.Y*ms*friction

	f := &Fling{X: pos.X, Y: pos.Y}
	f.tweens[0] = gween.New(float32(pos.X), float32(toX), duration, fn)
	f.tweens[1] = gween.New(float32(pos.Y), float32(toY), duration, fn)
	if duration <= 0 || v.Speed == 0 {
		f.Done = true
	}
	return f
}

// Update advances the fling by dt seconds and returns the new position.
func (f *Fling) Update(dt float32) Vec2 {
	if f.Done {
		return Vec2{f.X, f.Y}
	}
	x, doneX := f.tweens[0].Update(dt)
	y, doneY := f.tweens[1].Update(dt)
	f.X, f.Y = float64(x), float64(y)
	f.Done = doneX && doneY
	return Vec2{f.X, f.Y}
}
