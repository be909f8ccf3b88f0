package gesture

import "sync"

// RegistrationID identifies a listener registration. Ids are assigned by the
// Arbiter in increasing order and never reused.
type RegistrationID uint64

// Listener is called when a registration's identifier reports a match.
// Returning ErrStop drops the registration for the rest of the episode; any
// other non-nil error is recorded as a fault and drops it too.
type Listener func(ev *Event) error

type registration struct {
	id         RegistrationID
	identifier Identifier
	listener   Listener
	priority   int
}

// registry is one delegate's ordered list of registrations: descending
// priority, insertion order among equal priorities.
type registry struct {
	mu    sync.Mutex
	items []*registration
}

// insert scans from the end for the first entry whose priority is at least
// r.priority and places r right after it.
func (g *registry) insert(r *registration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := len(g.items) - 1
	for ; i >= 0; i-- {
		if g.items[i].priority >= r.priority {
			break
		}
	}
	g.items = append(g.items, nil)
	copy(g.items[i+2:], g.items[i+1:])
	g.items[i+1] = r
}

func (g *registry) snapshot() []*registration {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*registration, len(g.items))
	copy(out, g.items)
	return out
}

func (g *registry) len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.items)
}
