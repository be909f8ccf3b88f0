package gesture

// RawEvent is the platform event that produced a contact transition, as
// passed to the Arbiter's Pointer* methods.
type RawEvent struct {
	// Target is the element the event originated on. The target of the
	// first contact of an episode becomes Event.Target for the whole
	// episode.
	Target any
	// Native is the untouched platform event, if any.
	Native any
}

// Event is the payload handed to a listener when its identifier matches.
type Event struct {
	// Original is the raw event being dispatched. For deferred
	// re-evaluations it is the event that requested the deferral.
	Original RawEvent
	// Target is the episode's trigger target, fixed at first contact.
	Target any
	// Touch is the live session.
	Touch *Session
	// FirstMatch is true the first time this registration is identified in
	// the episode.
	FirstMatch bool
	// Identifier is the name of the matching identifier.
	Identifier string
	// Data is the continuation data the identifier returned.
	Data any

	terminal bool
	arbiter  *Arbiter
}

// Terminal reports whether the match ends the identifier's gesture. It is
// false for continuing confirmations such as an ongoing pan.
func (e *Event) Terminal() bool { return e.terminal }

// StopPropagation stops every registration sharing this identifier's name
// for the rest of the episode. It returns ErrNotTerminal, and stops nothing,
// when called on a continuing match; use StopAll there.
//
// Both stop methods only take effect while the listener is running.
func (e *Event) StopPropagation() error {
	if !e.terminal {
		return ErrNotTerminal
	}
	if e.arbiter != nil {
		e.arbiter.stopped[e.Identifier] = struct{}{}
	}
	return nil
}

// StopAll stops every registration for the rest of the episode.
func (e *Event) StopAll() {
	if e.arbiter != nil {
		e.arbiter.stopAll = true
	}
}
