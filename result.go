package gesture

import "time"

// Identifier is an external gesture recognizer. Identify is called with the
// live session on every relevant contact event for as long as the
// registration stays active in the episode.
//
// identified is true once an earlier call this episode returned Identified;
// data is the Data it returned then (nil otherwise).
type Identifier interface {
	// Name scopes StopPropagation: stopping an event stops every
	// registration whose identifier has the same name.
	Name() string
	Identify(touch *Session, identified bool, data any) (Result, error)
}

// Result is the decision an Identifier reaches for one evaluation. It is one
// of Pending, Identified or DeferUntil. A nil Result, including a nil
// *Identified or *DeferUntil, is treated as Pending.
type Result interface {
	isResult()
}

// Pending means no decision yet. The registration stays active and its
// listener is not called.
type Pending struct{}

// Identified means the recognizer has recognized (or finally rejected) the
// gesture it watches for.
type Identified struct {
	// Match gates the listener call. On the first identification only
	// Matched calls the listener. On later identifications any value other
	// than MatchUnknown is treated as Matched.
	Match Match
	// Continuing marks a non-terminal confirmation, such as an ongoing pan.
	// Continuing registrations stay active and may only stop propagation
	// globally.
	Continuing bool
	// Data is stored as the registration's continuation state and exposed to
	// the listener as Event.Data.
	Data any
}

// DeferUntil asks for the registration alone to be evaluated again after
// Timeout, even if no further contact event arrives.
type DeferUntil struct {
	Timeout time.Duration
}

func (Pending) isResult()    {}
func (Identified) isResult() {}
func (DeferUntil) isResult() {}

// Match is the tri-state verdict carried by Identified.
type Match uint8

const (
	MatchUnknown Match = iota // no verdict
	NoMatch                   // gesture rejected
	Matched                   // gesture recognized, notify the listener
)

// String returns the verdict name.
func (m Match) String() string {
	switch m {
	case NoMatch:
		return "no-match"
	case Matched:
		return "matched"
	default:
		return "unknown"
	}
}

// IdentifierFunc adapts a plain function into an Identifier with the given
// name.
func IdentifierFunc(name string, fn func(touch *Session, identified bool, data any) (Result, error)) Identifier {
	return funcIdentifier{name: name, fn: fn}
}

type funcIdentifier struct {
	name string
	fn   func(*Session, bool, any) (Result, error)
}

func (f funcIdentifier) Name() string { return f.name }

func (f funcIdentifier) Identify(touch *Session, identified bool, data any) (Result, error) {
	return f.fn(touch, identified, data)
}
