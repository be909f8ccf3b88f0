// Package gesture turns raw pointer and touch contacts into recognizer-driven
// gesture notifications.
//
// Applications register gesture identifiers (tap, swipe, pan, long-press, or
// anything else implementing [Identifier]) against a [Delegate], and feed raw
// contact transitions into the [Arbiter] that owns it. The arbiter keeps the
// shared [Session] of every concurrent contact, asks each participating
// identifier for a verdict on every event, and calls listeners when their
// identifier matches.
//
// # Quick start
//
//	arb := gesture.New(gesture.WithLogger(logger))
//	defer arb.Close()
//
//	d := arb.NewDelegate()
//	d.On(tap, func(ev *gesture.Event) error {
//		fmt.Println("tap on", ev.Target)
//		return nil
//	})
//
//	// From the platform input layer:
//	arb.PointerDown(gesture.RawEvent{Target: button}, id, x, y)
//	arb.PointerMove(gesture.RawEvent{Target: button}, id, x, y)
//	arb.PointerUp(gesture.RawEvent{Target: button}, id)
//
// The ebiteninput package polls Ebitengine touches and the cursor, and the
// wsbridge package accepts contacts from browsers over a websocket.
//
// # Episodes
//
// An episode runs from the first contact going down until the last one lifts.
// On the first contact the arbiter records the trigger target and collects
// the registrations of every delegate, in the order the delegates were
// created. Within a delegate, registrations are ordered by descending
// priority and then by registration order.
//
// When the episode ends all per-episode state is discarded: sequences,
// identifier continuation data, stop flags and pending re-evaluations.
//
// # Identifiers
//
// An identifier answers each evaluation with a [Result]:
//
//   - [Pending]: no decision yet.
//   - [Identified]: recognized; Match decides whether the listener runs,
//     Continuing keeps the registration alive for further confirmations.
//   - [DeferUntil]: evaluate this registration again after a timeout,
//     for example to tell a tap from a double tap.
//
// Errors and panics from identifiers and listeners are isolated to their
// registration and recorded as [Fault] values, see [Arbiter.Faults].
//
// # Propagation
//
// A listener may call [Event.StopPropagation] to end participation of every
// registration with the same identifier name, or [Event.StopAll] to end the
// episode for everyone. Returning [ErrStop] ends its own participation.
package gesture
