package main

import (
	"math"
	"time"

	"github.com/phanxgames/gesture"
)

// Thresholds for the built-in recognizers.
const (
	slop          = 10.0
	tapMaxTime    = 300 * time.Millisecond
	holdTime      = 500 * time.Millisecond
	swipeMinSpeed = 0.3 // px/ms
	swipeMinDist  = 30.0
	pinchMinScale = 0.1
)

// tap matches a single short contact that barely moved.
type tap struct{}

func (tap) Name() string { return "tap" }

func (tap) Identify(touch *gesture.Session, _ bool, _ any) (gesture.Result, error) {
	seqs := touch.Sequences()
	if len(seqs) != 1 || seqs[0].MaxRadius() >= slop {
		return gesture.Identified{Match: gesture.NoMatch}, nil
	}
	if !touch.IsEnd() {
		return gesture.Pending{}, nil
	}
	if seqs[0].TimeLasting() >= tapMaxTime {
		return gesture.Identified{Match: gesture.NoMatch}, nil
	}
	pos, _ := seqs[0].Position()
	return gesture.Identified{Match: gesture.Matched, Data: pos}, nil
}

// hold matches a contact kept still for holdTime.
type hold struct{}

func (hold) Name() string { return "hold" }

func (hold) Identify(touch *gesture.Session, _ bool, _ any) (gesture.Result, error) {
	seqs := touch.Sequences()
	if len(seqs) != 1 || seqs[0].MaxRadius() >= slop || touch.IsEnd() {
		return gesture.Identified{Match: gesture.NoMatch}, nil
	}
	if seqs[0].TimeLasting() >= holdTime {
		return gesture.Identified{Match: gesture.Matched, Data: seqs[0].TimeLasting()}, nil
	}
	if touch.IsStart() {
		return gesture.DeferUntil{Timeout: holdTime}, nil
	}
	return gesture.Pending{}, nil
}

// swipe matches a fast single-contact flick and reports its direction.
type swipe struct{}

func (swipe) Name() string { return "swipe" }

func (swipe) Identify(touch *gesture.Session, _ bool, _ any) (gesture.Result, error) {
	seqs := touch.Sequences()
	if len(seqs) != 1 {
		return gesture.Identified{Match: gesture.NoMatch}, nil
	}
	if !touch.IsEnd() {
		return gesture.Pending{}, nil
	}
	d, _ := seqs[0].Diff()
	v := seqs[0].Velocity()
	if v.Speed < swipeMinSpeed || math.Hypot(d.X, d.Y) < swipeMinDist {
		return gesture.Identified{Match: gesture.NoMatch}, nil
	}
	return gesture.Identified{Match: gesture.Matched, Data: direction(d)}, nil
}

func direction(d gesture.Vec2) string {
	if math.Abs(d.X) >= math.Abs(d.Y) {
		if d.X < 0 {
			return "left"
		}
		return "right"
	}
	if d.Y < 0 {
		return "up"
	}
	return "down"
}

// pan reports the displacement of a single contact once it leaves the slop
// radius, on every move until it lifts.
type pan struct{}

func (pan) Name() string { return "pan" }

func (pan) Identify(touch *gesture.Session, identified bool, _ any) (gesture.Result, error) {
	seqs := touch.Sequences()
	if len(seqs) != 1 {
		return gesture.Identified{Match: gesture.NoMatch}, nil
	}
	if !identified && seqs[0].MaxRadius() < slop {
		if touch.IsEnd() {
			return gesture.Identified{Match: gesture.NoMatch}, nil
		}
		return gesture.Pending{}, nil
	}
	d, _ := seqs[0].Diff()
	return gesture.Identified{Match: gesture.Matched, Continuing: !touch.IsEnd(), Data: d}, nil
}

// pinch reports the scale between the first two contacts.
type pinch struct{}

func (pinch) Name() string { return "pinch" }

func (pinch) Identify(touch *gesture.Session, identified bool, _ any) (gesture.Result, error) {
	seqs := touch.Sequences()
	if len(seqs) < 2 {
		if touch.IsEnd() {
			return gesture.Identified{Match: gesture.NoMatch}, nil
		}
		return gesture.Pending{}, nil
	}
	a0, _ := seqs[0].First()
	b0, _ := seqs[1].First()
	a, _ := seqs[0].Position()
	b, _ := seqs[1].Position()

	start := gesture.Distance(a0.Pos(), b0.Pos())
	if start == 0 {
		return gesture.Pending{}, nil
	}
	scale := gesture.Distance(a, b) / start
	if !identified && math.Abs(scale-1) < pinchMinScale {
		if touch.IsEnd() {
			return gesture.Identified{Match: gesture.NoMatch}, nil
		}
		return gesture.Pending{}, nil
	}
	return gesture.Identified{Match: gesture.Matched, Continuing: !touch.IsEnd(), Data: scale}, nil
}

// builtins returns the recognizers gesturectl registers by default.
func builtins() []gesture.Identifier {
	return []gesture.Identifier{tap{}, hold{}, swipe{}, pan{}, pinch{}}
}
