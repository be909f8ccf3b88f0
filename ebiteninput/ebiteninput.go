// Package ebiteninput polls Ebitengine touches and the mouse cursor once per
// tick and forwards contact transitions to a gesture.Arbiter.
package ebiteninput

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog"

	"github.com/phanxgames/gesture"
)

// Poller reads the raw input state for one tick.
type Poller interface {
	AppendTouchIDs(ids []ebiten.TouchID) []ebiten.TouchID
	TouchPosition(id ebiten.TouchID) (int, int)
	CursorPosition() (int, int)
	MousePressed() bool
}

type ebitenPoller struct{}

func (ebitenPoller) AppendTouchIDs(ids []ebiten.TouchID) []ebiten.TouchID {
	return ebiten.AppendTouchIDs(ids)
}

func (ebitenPoller) TouchPosition(id ebiten.TouchID) (int, int) {
	return ebiten.TouchPosition(id)
}

func (ebitenPoller) CursorPosition() (int, int) {
	return ebiten.CursorPosition()
}

func (ebitenPoller) MousePressed() bool {
	return ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) ||
		ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight) ||
		ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle)
}

// HitTestFunc returns the application element under screen position (x, y).
// The result becomes the RawEvent target.
type HitTestFunc func(x, y float64) any

// Native is attached to every RawEvent produced by a Source.
type Native struct {
	Mouse bool
	Touch ebiten.TouchID
}

type contact struct {
	x, y float64
}

// Source converts polled input into arbiter calls.
type Source struct {
	arbiter *gesture.Arbiter
	poller  Poller
	hitTest HitTestFunc
	log     zerolog.Logger

	mouse     gesture.MouseConfig
	mouseDown bool
	mouseLast contact

	touches map[ebiten.TouchID]*contact
	ids     []ebiten.TouchID
	seen    map[ebiten.TouchID]bool
}

// Option configures a Source.
type Option func(*Source)

// WithPoller replaces the Ebitengine input functions, mostly for tests.
func WithPoller(p Poller) Option {
	return func(s *Source) { s.poller = p }
}

// WithHitTest sets the function resolving event targets.
func WithHitTest(fn HitTestFunc) Option {
	return func(s *Source) { s.hitTest = fn }
}

// WithMouse sets whether and under which contact id the cursor is reported.
func WithMouse(cfg gesture.MouseConfig) Option {
	return func(s *Source) { s.mouse = cfg }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Source) { s.log = gesture.ComponentLogger(l, "ebiteninput") }
}

// New creates a Source feeding a.
func New(a *gesture.Arbiter, opts ...Option) *Source {
	s := &Source{
		arbiter: a,
		poller:  ebitenPoller{},
		log:     zerolog.Nop(),
		mouse:   gesture.DefaultConfig().Mouse,
		touches: make(map[ebiten.TouchID]*contact),
		seen:    make(map[ebiten.TouchID]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update polls input once. Call it from the game's Update method.
func (s *Source) Update() {
	if s.mouse.Enabled {
		s.updateMouse()
	}
	s.updateTouches()
}

// Active returns the number of contacts currently held down.
func (s *Source) Active() int {
	n := len(s.touches)
	if s.mouseDown {
		n++
	}
	return n
}

func (s *Source) event(x, y float64, native Native) gesture.RawEvent {
	var target any
	if s.hitTest != nil {
		target = s.hitTest(x, y)
	}
	return gesture.RawEvent{Target: target, Native: native}
}

func (s *Source) updateMouse() {
	mx, my := s.poller.CursorPosition()
	x, y := float64(mx), float64(my)
	pressed := s.poller.MousePressed()
	native := Native{Mouse: true}

	switch {
	case pressed && !s.mouseDown:
		s.mouseDown = true
		s.mouseLast = contact{x, y}
		s.arbiter.PointerDown(s.event(x, y, native), s.mouse.ContactID, x, y)
	case pressed && s.mouseDown:
		if x != s.mouseLast.x || y != s.mouseLast.y {
			s.mouseLast = contact{x, y}
			s.arbiter.PointerMove(s.event(x, y, native), s.mouse.ContactID, x, y)
		}
	case !pressed && s.mouseDown:
		s.mouseDown = false
		s.arbiter.PointerUp(s.event(x, y, native), s.mouse.ContactID)
	}
}

func (s *Source) updateTouches() {
	s.ids = s.poller.AppendTouchIDs(s.ids[:0])
	clear(s.seen)

	for _, tid := range s.ids {
		s.seen[tid] = true
		tx, ty := s.poller.TouchPosition(tid)
		x, y := float64(tx), float64(ty)
		native := Native{Touch: tid}

		c, ok := s.touches[tid]
		if !ok {
			s.touches[tid] = &contact{x, y}
			s.log.Trace().Int("touch", int(tid)).Float64("x", x).Float64("y", y).Msg("touch down")
			s.arbiter.PointerDown(s.event(x, y, native), int(tid), x, y)
			continue
		}
		if c.x != x || c.y != y {
			c.x, c.y = x, y
			s.arbiter.PointerMove(s.event(x, y, native), int(tid), x, y)
		}
	}

	for tid, c := range s.touches {
		if s.seen[tid] {
			continue
		}
		delete(s.touches, tid)
		s.log.Trace().Int("touch", int(tid)).Msg("touch up")
		s.arbiter.PointerUp(s.event(c.x, c.y, Native{Touch: tid}), int(tid))
	}
}
