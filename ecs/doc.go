// Package ecs publishes recognized gestures into a [Donburi] world.
//
// [NewPublisher] returns a value whose [Publisher.Listener] can be registered
// on any gesture delegate. Each match is queued as a [GestureEvent]; episode
// summaries go to [EpisodeEventType] when [Publisher.Hook] is registered with
// OnEpisodeEnd. Systems consume both with ProcessEvents.
//
// Usage:
//
//	pub := ecs.NewPublisher(world)
//	delegate.On(tap, pub.Listener())
//	arbiter.OnEpisodeEnd(pub.Hook())
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
