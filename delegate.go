package gesture

// Element is implemented by targets that sit in a hierarchy. Selector-scoped
// registrations walk ParentElement to find the closest matching ancestor of
// the trigger target.
type Element interface {
	ParentElement() Element
}

// Selector reports whether a target matches.
type Selector func(target any) bool

// Delegate owns an ordered set of listener registrations and contributes
// them to every episode of its Arbiter. Create one with Arbiter.NewDelegate.
type Delegate struct {
	arbiter *Arbiter
	root    any
	region  Region
	reg     registry
}

// DelegateOption configures a Delegate.
type DelegateOption func(*Delegate)

// WithRoot sets the element the delegate is attached to. Selector-scoped
// registrations never search above it.
func WithRoot(root any) DelegateOption {
	return func(d *Delegate) { d.root = root }
}

// WithRegion limits the delegate to episodes whose first contact lies inside
// r. Without a region the delegate joins every episode.
func WithRegion(r Region) DelegateOption {
	return func(d *Delegate) { d.region = r }
}

// Root returns the element the delegate is attached to.
func (d *Delegate) Root() any { return d.root }

// On registers listener for identifier with priority 0.
func (d *Delegate) On(identifier Identifier, listener Listener) RegistrationID {
	return d.OnPriority(identifier, listener, 0)
}

// OnPriority registers listener for identifier. Higher priorities are
// evaluated first; equal priorities run in registration order.
// Registrations made during an episode take part from the next episode on.
func (d *Delegate) OnPriority(identifier Identifier, listener Listener, priority int) RegistrationID {
	r := &registration{
		id:         d.arbiter.nextRegistrationID(),
		identifier: identifier,
		listener:   listener,
		priority:   priority,
	}
	d.reg.insert(r)
	return r.id
}

// Delegate registers a selector-scoped listener. When identifier matches,
// the trigger target, or failing that its closest ancestor below the
// delegate's root, is tested against selector. The listener only runs when
// an element matches, and sees that element as Event.Target.
//
// Targets compared against the root must be comparable.
func (d *Delegate) Delegate(identifier Identifier, selector Selector, listener Listener, priority int) RegistrationID {
	return d.OnPriority(identifier, func(ev *Event) error {
		target, ok := d.closest(ev.Target, selector)
		if !ok {
			return nil
		}
		ev.Target = target
		return listener(ev)
	}, priority)
}

// Len returns the number of registrations.
func (d *Delegate) Len() int { return d.reg.len() }

func (d *Delegate) closest(target any, selector Selector) (any, bool) {
	if target == nil {
		return nil, false
	}
	if selector(target) {
		return target, true
	}
	cur := target
	for {
		el, ok := cur.(Element)
		if !ok {
			return nil, false
		}
		parent := el.ParentElement()
		if parent == nil || (d.root != nil && any(parent) == d.root) {
			return nil, false
		}
		if selector(parent) {
			return parent, true
		}
		cur = parent
	}
}

func (d *Delegate) accepts(x, y float64) bool {
	return d.region == nil || d.region.Contains(x, y)
}
