package gesture

import "time"

// DefaultFrame is the time an Injector lets pass between generated samples.
const DefaultFrame = 16 * time.Millisecond

// Injector feeds synthetic contacts into an Arbiter. With a ManualClock the
// clock is advanced between samples, so deferred re-evaluations fire exactly
// as they would during real input; with a nil clock Wait sleeps instead.
type Injector struct {
	arbiter *Arbiter
	clock   *ManualClock
	target  any

	// Frame is the time between samples of Tap, Drag and Hold.
	Frame time.Duration
}

// NewInjector creates an injector for a. clock should be the ManualClock the
// arbiter was built with, or nil.
func NewInjector(a *Arbiter, clock *ManualClock) *Injector {
	return &Injector{arbiter: a, clock: clock, Frame: DefaultFrame}
}

// SetTarget sets the RawEvent target of subsequently injected events.
func (in *Injector) SetTarget(target any) {
	in.target = target
}

func (in *Injector) event() RawEvent {
	return RawEvent{Target: in.target, Native: "synthetic"}
}

// Press puts contact id down at (x, y).
func (in *Injector) Press(id int, x, y float64) {
	in.arbiter.PointerDown(in.event(), id, x, y)
}

// Move moves contact id to (x, y).
func (in *Injector) Move(id int, x, y float64) {
	in.arbiter.PointerMove(in.event(), id, x, y)
}

// Release lifts contact id.
func (in *Injector) Release(id int) {
	in.arbiter.PointerUp(in.event(), id)
}

// Wait lets d pass.
func (in *Injector) Wait(d time.Duration) {
	if d <= 0 {
		return
	}
	if in.clock != nil {
		in.clock.Advance(d)
		return
	}
	time.Sleep(d)
}

// Tap presses and releases contact id at (x, y), one frame apart.
func (in *Injector) Tap(id int, x, y float64) {
	in.Press(id, x, y)
	in.Wait(in.Frame)
	in.Release(id)
}

// Hold presses contact id at (x, y), waits d and releases it.
func (in *Injector) Hold(id int, x, y float64, d time.Duration) {
	in.Press(id, x, y)
	in.Wait(d)
	in.Release(id)
}

// Drag presses contact id at (fromX, fromY), moves it over frames-1 linearly
// interpolated frames to (toX, toY) and releases it. Minimum frames is 2.
func (in *Injector) Drag(id int, fromX, fromY, toX, toY float64, frames int) {
	if frames < 2 {
		frames = 2
	}
	in.Press(id, fromX, fromY)
	steps := frames - 1
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		in.Wait(in.Frame)
		in.Move(id, fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	in.Wait(in.Frame)
	in.Release(id)
}
