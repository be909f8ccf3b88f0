package gesture

import "time"

// Session is the shared snapshot of one multi-contact episode: every sequence
// that took part, the currently active contacts, and the continuation state
// recognizers left behind for each registration.
//
// A Session is owned by an Arbiter and only mutated from inside it. Listeners
// and identifiers receive it read-only.
type Session struct {
	now       func() time.Time
	sequences []*Sequence
	active    map[int]*Sequence
	state     map[RegistrationID]any
	points    int
}

func newSession(now func() time.Time) *Session {
	return &Session{
		now:    now,
		active: make(map[int]*Sequence),
		state:  make(map[RegistrationID]any),
	}
}

// Sequences returns every sequence of the episode in the order the contacts
// went down, ended ones included.
func (s *Session) Sequences() []*Sequence {
	out := make([]*Sequence, len(s.sequences))
	copy(out, s.sequences)
	return out
}

// Active returns the active sequence for a contact id.
func (s *Session) Active(contactID int) (*Sequence, bool) {
	seq, ok := s.active[contactID]
	return seq, ok
}

// ActiveCount returns the number of contacts currently down.
func (s *Session) ActiveCount() int { return len(s.active) }

// State returns the continuation data stored for a registration and whether
// the registration has been identified this episode.
func (s *Session) State(id RegistrationID) (any, bool) {
	data, ok := s.state[id]
	return data, ok
}

// IsStart reports whether the latest point is the very first point of a
// fresh episode.
func (s *Session) IsStart() bool {
	return !s.IsEnd() && len(s.sequences) == 1 && s.sequences[0].Len() == 1
}

// IsEnd reports whether no contact is active.
func (s *Session) IsEnd() bool { return len(s.active) == 0 }

// TimeLasting returns the elapsed time since the first point of the episode.
// Once every contact has ended it is the latest end time minus that start.
func (s *Session) TimeLasting() time.Duration {
	if len(s.sequences) == 0 {
		return 0
	}
	first, ok := s.sequences[0].First()
	if !ok {
		return 0
	}
	if !s.IsEnd() {
		return s.now().Sub(first.Time)
	}
	end := first.Time
	for _, seq := range s.sequences {
		if last, ok := seq.Last(); ok && last.Time.After(end) {
			end = last.Time
		}
	}
	return end.Sub(first.Time)
}

// start begins tracking contactID and returns its new sequence.
func (s *Session) start(contactID int) *Sequence {
	seq := newSequence(contactID, s.now)
	s.active[contactID] = seq
	s.sequences = append(s.sequences, seq)
	return seq
}

// end stops tracking contactID. The sequence stays in the episode history.
func (s *Session) end(contactID int) {
	delete(s.active, contactID)
}

// add appends p to seq, numbering it within the episode.
func (s *Session) add(seq *Sequence, p TouchPoint) {
	p.Order = s.points
	s.points++
	seq.Add(p)
}

func (s *Session) setState(id RegistrationID, data any) {
	s.state[id] = data
}

func (s *Session) reset() {
	s.sequences = nil
	s.points = 0
	clear(s.active)
	clear(s.state)
}
