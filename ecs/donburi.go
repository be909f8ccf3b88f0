package ecs

import (
	"time"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"

	"github.com/phanxgames/gesture"
)

// GestureEvent is a flattened gesture match. Entity is set when the event
// target is a donburi.Entity.
type GestureEvent struct {
	Identifier string
	Entity     donburi.Entity
	Target     any
	X, Y       float64
	Contacts   int
	FirstMatch bool
	Terminal   bool
	Data       any
}

// EpisodeEvent summarizes a finished episode.
type EpisodeEvent struct {
	ID       string
	Duration time.Duration
	Contacts int
	Matches  int
	Faults   int
}

// GestureEventType carries gesture matches. Subscribe to it in ECS systems.
var GestureEventType = events.NewEventType[GestureEvent]()

// EpisodeEventType carries episode summaries.
var EpisodeEventType = events.NewEventType[EpisodeEvent]()

// Publisher queues gesture notifications on a Donburi world.
type Publisher struct {
	world donburi.World
}

// NewPublisher creates a Publisher for world.
func NewPublisher(world donburi.World) *Publisher {
	return &Publisher{world: world}
}

// Listener returns a gesture listener publishing every match as a
// GestureEvent. The position is the latest sample of the most recent active
// contact, or of the last contact once all have lifted.
func (p *Publisher) Listener() gesture.Listener {
	return func(ev *gesture.Event) error {
		ge := GestureEvent{
			Identifier: ev.Identifier,
			Target:     ev.Target,
			FirstMatch: ev.FirstMatch,
			Terminal:   ev.Terminal(),
			Data:       ev.Data,
		}
		if e, ok := ev.Target.(donburi.Entity); ok {
			ge.Entity = e
		}
		if ev.Touch != nil {
			ge.Contacts = ev.Touch.ActiveCount()
			if seqs := ev.Touch.Sequences(); len(seqs) > 0 {
				pick := seqs[len(seqs)-1]
				for i := len(seqs) - 1; i >= 0; i-- {
					if !seqs[i].Ended() {
						pick = seqs[i]
						break
					}
				}
				if pos, ok := pick.Position(); ok {
					ge.X, ge.Y = pos.X, pos.Y
				}
			}
		}
		GestureEventType.Publish(p.world, ge)
		return nil
	}
}

// Hook returns an OnEpisodeEnd hook publishing EpisodeEvents.
func (p *Publisher) Hook() func(gesture.Episode) {
	return func(ep gesture.Episode) {
		EpisodeEventType.Publish(p.world, EpisodeEvent{
			ID:       ep.ID.String(),
			Duration: ep.Ended.Sub(ep.Started),
			Contacts: len(ep.Sequences),
			Matches:  len(ep.Matches),
			Faults:   len(ep.Faults),
		})
	}
}
