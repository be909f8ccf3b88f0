package gesture

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultFaultLogSize = 64

// Arbiter turns raw contact transitions into gesture notifications. It owns
// the touch session shared by all of its delegates, the set of registrations
// still taking part in the current episode, propagation-stop flags, and the
// timers of deferred re-evaluations.
//
// Raw events and timer re-evaluations are serialized by an internal lock.
// Listeners and identifiers run under that lock. From there they may register
// new listeners, stop propagation, read Faults and call Snapshot, which then
// returns the state as of the current callback. Close called during a pass
// takes effect when the pass ends. Listeners must not feed raw events back
// into the same Arbiter.
type Arbiter struct {
	mu      sync.Mutex
	passing atomic.Bool
	closing atomic.Bool
	current atomic.Pointer[State]
	clock   Clock
	log     zerolog.Logger
	faults  *FaultLog
	onFault func(Fault)

	delegatesMu sync.Mutex
	delegates   []*Delegate
	nextID      atomic.Uint64

	hooksMu sync.Mutex
	hooks   []func(Episode)

	session  *Session
	active   []*registration
	target   any
	stopAll  bool
	stopped  map[string]struct{}
	timers   []Timer
	gen      uint64
	episode  uuid.UUID
	started  time.Time
	matches  []MatchRecord
	epFaults []Fault
	closed   bool
}

// Option configures an Arbiter.
type Option func(*Arbiter)

// WithClock sets the time source and timer factory. Defaults to SystemClock.
func WithClock(c Clock) Option {
	return func(a *Arbiter) { a.clock = c }
}

// WithLogger sets the logger. Defaults to a disabled logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Arbiter) { a.log = l }
}

// WithFaultLogSize sets how many faults are retained by Faults.
func WithFaultLogSize(n int) Option {
	return func(a *Arbiter) { a.faults = NewFaultLog(n) }
}

// WithFaultHandler registers fn to be called with every fault as it is
// recorded. fn runs under the Arbiter's lock; a panic in fn is logged and
// otherwise ignored.
func WithFaultHandler(fn func(Fault)) Option {
	return func(a *Arbiter) { a.onFault = fn }
}

// WithConfig applies the arbiter-related settings of cfg.
func WithConfig(cfg Config) Option {
	return func(a *Arbiter) {
		a.faults = NewFaultLog(cfg.FaultLogSize)
		if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
			a.log = a.log.Level(lvl)
		}
	}
}

// MatchRecord notes one listener invocation during an episode.
type MatchRecord struct {
	Registration RegistrationID
	Identifier   string
	FirstMatch   bool
	Terminal     bool
	Time         time.Time
}

// Episode summarizes a finished episode. It is passed to OnEpisodeEnd hooks.
type Episode struct {
	ID        uuid.UUID
	Started   time.Time
	Ended     time.Time
	Target    any
	Sequences []*Sequence
	Matches   []MatchRecord
	Faults    []Fault
}

// State is a point-in-time view of the Arbiter's episode bookkeeping.
type State struct {
	Episode             uuid.UUID
	ActiveContacts      int
	Sequences           int
	ActiveRegistrations int
	IdentifiedStates    int
	PendingTimers       int
	StopAll             bool
	Stopped             []string
	Target              any
}

// New creates an Arbiter.
func New(opts ...Option) *Arbiter {
	a := &Arbiter{
		clock:   SystemClock{},
		log:     zerolog.Nop(),
		faults:  NewFaultLog(defaultFaultLogSize),
		stopped: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.session = newSession(a.clock.Now)
	return a
}

// NewDelegate creates a delegate attached to this Arbiter. Delegates
// contribute their registrations to episodes in the order they were created.
func (a *Arbiter) NewDelegate(opts ...DelegateOption) *Delegate {
	d := &Delegate{arbiter: a}
	for _, opt := range opts {
		opt(d)
	}
	a.delegatesMu.Lock()
	a.delegates = append(a.delegates, d)
	a.delegatesMu.Unlock()
	return d
}

// OnEpisodeEnd registers fn to receive a summary whenever an episode ends.
// Hooks run after the Arbiter's lock has been released.
func (a *Arbiter) OnEpisodeEnd(fn func(Episode)) {
	a.hooksMu.Lock()
	a.hooks = append(a.hooks, fn)
	a.hooksMu.Unlock()
}

// Faults returns the retained faults, oldest first.
func (a *Arbiter) Faults() []Fault { return a.faults.Entries() }

// DrainFaults returns the retained faults and clears the log.
func (a *Arbiter) DrainFaults() []Fault { return a.faults.Drain() }

// Snapshot returns the current episode bookkeeping. During a dispatch pass
// it returns the state published before the running identifier or listener
// was called.
func (a *Arbiter) Snapshot() State {
	if a.mu.TryLock() {
		defer a.mu.Unlock()
		return a.state()
	}
	if a.passing.Load() {
		if st := a.current.Load(); st != nil {
			return *st
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state()
}

func (a *Arbiter) state() State {
	st := State{
		Episode:             a.episode,
		ActiveContacts:      a.session.ActiveCount(),
		Sequences:           len(a.session.sequences),
		ActiveRegistrations: len(a.active),
		IdentifiedStates:    len(a.session.state),
		PendingTimers:       len(a.timers),
		StopAll:             a.stopAll,
		Target:              a.target,
	}
	for name := range a.stopped {
		st.Stopped = append(st.Stopped, name)
	}
	sort.Strings(st.Stopped)
	return st
}

// Close cancels pending re-evaluations and discards the current episode
// without notifying hooks. Raw events are ignored afterwards. When a dispatch
// pass is running, remaining registrations are skipped and the shutdown
// happens as the pass ends.
func (a *Arbiter) Close() error {
	if !a.closing.CompareAndSwap(false, true) {
		return ErrClosed
	}
	if a.mu.TryLock() {
		defer a.mu.Unlock()
		a.shutdown()
		return nil
	}
	if a.passing.Load() {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shutdown()
	return nil
}

func (a *Arbiter) shutdown() {
	if a.closed {
		return
	}
	a.closed = true
	if a.session.ActiveCount() > 0 || len(a.session.sequences) > 0 {
		a.endEpisode()
	}
	a.log.Debug().Msg("arbiter closed")
}

func (a *Arbiter) nextRegistrationID() RegistrationID {
	return RegistrationID(a.nextID.Add(1))
}

// PointerDown records a contact going down. An id that is already active is
// treated as a plain move. The first contact of an episode fixes the trigger
// target and builds the episode's active registration set.
func (a *Arbiter) PointerDown(ev RawEvent, contactID int, x, y float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	seq, ok := a.session.Active(contactID)
	if !ok {
		if a.session.ActiveCount() == 0 {
			a.beginEpisode(ev, x, y)
		}
		seq = a.session.start(contactID)
	}
	a.session.add(seq, TouchPoint{X: x, Y: y, Time: a.clock.Now(), IsStart: !ok})
	a.pass(ev, nil)
}

// PointerMove records a move of an active contact. Moves of unknown contacts
// are ignored.
func (a *Arbiter) PointerMove(ev RawEvent, contactID int, x, y float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	seq, ok := a.session.Active(contactID)
	if !ok {
		return
	}
	a.session.add(seq, TouchPoint{X: x, Y: y, Time: a.clock.Now()})
	a.pass(ev, nil)
}

// PointerUp records an active contact lifting (or being cancelled) at its
// last known position. When it was the last active contact the episode ends
// after the dispatch pass. Ups of unknown contacts are ignored.
func (a *Arbiter) PointerUp(ev RawEvent, contactID int) {
	var ep *Episode
	defer func() {
		if ep != nil {
			a.emit(*ep)
		}
	}()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	seq, ok := a.session.Active(contactID)
	if !ok {
		return
	}
	last, _ := seq.Last()
	a.session.add(seq, TouchPoint{X: last.X, Y: last.Y, Time: a.clock.Now(), IsEnd: true})
	a.session.end(contactID)
	a.pass(ev, nil)

	if !a.closed && a.session.ActiveCount() == 0 {
		ep = a.endEpisode()
	}
}

func (a *Arbiter) beginEpisode(ev RawEvent, x, y float64) {
	a.gen++
	a.episode = uuid.New()
	a.started = a.clock.Now()
	a.target = ev.Target

	a.delegatesMu.Lock()
	delegates := make([]*Delegate, len(a.delegates))
	copy(delegates, a.delegates)
	a.delegatesMu.Unlock()

	a.active = a.active[:0]
	for _, d := range delegates {
		if d.accepts(x, y) {
			a.active = append(a.active, d.reg.snapshot()...)
		}
	}

	a.log.Debug().
		Str("episode", a.episode.String()).
		Int("registrations", len(a.active)).
		Msg("episode started")
}

// endEpisode resets all per-episode state and returns its summary.
func (a *Arbiter) endEpisode() *Episode {
	ep := &Episode{
		ID:        a.episode,
		Started:   a.started,
		Ended:     a.clock.Now(),
		Target:    a.target,
		Sequences: a.session.Sequences(),
		Matches:   a.matches,
		Faults:    a.epFaults,
	}

	for _, t := range a.timers {
		t.Stop()
	}
	a.timers = nil
	a.gen++

	a.session.reset()
	a.target = nil
	a.active = nil
	a.stopAll = false
	clear(a.stopped)
	a.matches = nil
	a.epFaults = nil

	a.log.Debug().
		Str("episode", ep.ID.String()).
		Int("sequences", len(ep.Sequences)).
		Int("matches", len(ep.Matches)).
		Dur("duration", ep.Ended.Sub(ep.Started)).
		Msg("episode ended")
	a.episode = uuid.Nil
	return ep
}

func (a *Arbiter) emit(ep Episode) {
	a.hooksMu.Lock()
	hooks := make([]func(Episode), len(a.hooks))
	copy(hooks, a.hooks)
	a.hooksMu.Unlock()

	for _, fn := range hooks {
		fn(ep)
	}
}

// pass wraps dispatch, publishing state for Snapshot calls made from inside
// the pass and finishing a Close requested during it.
func (a *Arbiter) pass(ev RawEvent, only *registration) {
	a.passing.Store(true)
	defer func() {
		a.passing.Store(false)
		a.current.Store(nil)
		if a.closing.Load() {
			a.shutdown()
		}
	}()
	a.dispatch(ev, only)
}

func (a *Arbiter) publish() {
	st := a.state()
	a.current.Store(&st)
}

// dispatch runs one pass over the active set. When only is set, the pass was
// triggered by only's deferred re-evaluation and every other registration is
// left untouched.
func (a *Arbiter) dispatch(ev RawEvent, only *registration) {
	kept := make([]*registration, 0, len(a.active))
	for _, r := range a.active {
		if only != nil && r != only {
			kept = append(kept, r)
			continue
		}
		if a.evaluate(ev, r) {
			kept = append(kept, r)
		}
	}
	a.active = kept
}

// evaluate runs r's identifier and, on a match, its listener. It reports
// whether r stays in the active set.
func (a *Arbiter) evaluate(ev RawEvent, r *registration) bool {
	name := r.identifier.Name()
	if a.stopAll || a.closing.Load() {
		return false
	}
	if _, ok := a.stopped[name]; ok {
		return false
	}

	data, identified := a.session.State(r.id)
	a.publish()
	res, err := a.identify(r, identified, data)
	if err != nil {
		a.fault(r, StageIdentify, err)
		return false
	}

	var (
		match      bool
		continuing bool
		firstMatch = !identified
	)
	switch res := res.(type) {
	case nil, Pending, *Pending:
		return true
	case DeferUntil:
		a.schedule(ev, r, res.Timeout)
		return true
	case *DeferUntil:
		if res != nil {
			a.schedule(ev, r, res.Timeout)
		}
		return true
	case Identified:
		match, continuing, data = a.resolve(r, res, identified)
	case *Identified:
		if res == nil {
			return true
		}
		match, continuing, data = a.resolve(r, *res, identified)
	default:
		return true
	}

	if match {
		e := &Event{
			Original:   ev,
			Target:     a.target,
			Touch:      a.session,
			FirstMatch: firstMatch,
			Identifier: name,
			Data:       data,
			terminal:   !continuing,
			arbiter:    a,
		}
		a.matches = append(a.matches, MatchRecord{
			Registration: r.id,
			Identifier:   name,
			FirstMatch:   firstMatch,
			Terminal:     !continuing,
			Time:         a.clock.Now(),
		})
		a.publish()
		err := a.invoke(r, e)
		e.arbiter = nil
		if errors.Is(err, ErrStop) {
			return false
		}
		if err != nil {
			a.fault(r, StageListener, err)
			return false
		}
	}

	return continuing
}

// resolve stores res's data and works out the match verdict. Once a
// registration has been identified, any verdict other than MatchUnknown on
// a later identification counts as a match.
func (a *Arbiter) resolve(r *registration, res Identified, already bool) (match, continuing bool, data any) {
	a.session.setState(r.id, res.Data)
	match = res.Match == Matched
	if already && res.Match != MatchUnknown {
		match = true
	}
	return match, res.Continuing, res.Data
}

func (a *Arbiter) schedule(ev RawEvent, r *registration, d time.Duration) {
	gen := a.gen
	t := a.clock.AfterFunc(d, func() { a.retrigger(gen, ev, r) })
	a.timers = append(a.timers, t)
	a.log.Trace().
		Str("episode", a.episode.String()).
		Str("identifier", r.identifier.Name()).
		Dur("timeout", d).
		Msg("re-evaluation scheduled")
}

func (a *Arbiter) retrigger(gen uint64, ev RawEvent, r *registration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || gen != a.gen {
		return
	}
	a.log.Trace().
		Str("episode", a.episode.String()).
		Str("identifier", r.identifier.Name()).
		Msg("re-evaluating")
	a.pass(ev, r)
}

func (a *Arbiter) identify(r *registration, identified bool, data any) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicError(p)
		}
	}()
	return r.identifier.Identify(a.session, identified, data)
}

func (a *Arbiter) invoke(r *registration, e *Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicError(p)
		}
	}()
	return r.listener(e)
}

func (a *Arbiter) fault(r *registration, stage Stage, err error) {
	f := Fault{
		Episode:      a.episode,
		Registration: r.id,
		Identifier:   r.identifier.Name(),
		Stage:        stage,
		Err:          err,
		Time:         a.clock.Now(),
	}
	a.faults.Add(f)
	a.epFaults = append(a.epFaults, f)
	a.log.Error().
		Err(err).
		Str("episode", f.Episode.String()).
		Str("identifier", f.Identifier).
		Uint64("registration", uint64(f.Registration)).
		Str("stage", stage.String()).
		Msg("registration fault")
	if a.onFault != nil {
		a.notify(f)
	}
}

func (a *Arbiter) notify(f Fault) {
	defer func() {
		if p := recover(); p != nil {
			a.log.Error().
				Err(panicError(p)).
				Str("identifier", f.Identifier).
				Msg("fault handler panicked")
		}
	}()
	a.onFault(f)
}
