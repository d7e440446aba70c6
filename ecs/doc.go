// Package ecs bridges canvas output into a [Donburi] world.
//
// [NewDonburiSink] publishes every canvas event (box completed, box
// updated, mask selection changed, state changed) as a typed Donburi event.
// Subscribe to [CanvasEventType] in your ECS systems to receive them.
//
// Usage:
//
//	sink := ecs.NewDonburiSink(world)
//	session := annotator.NewSession(cfg, annotator.WithEventSink(sink))
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
