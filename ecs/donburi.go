// Package ecs provides ECS adapters for annotator canvases.
package ecs

import (
	"github.com/phanxgames/annotator"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// CanvasEventType is the Donburi event type for canvas events.
var CanvasEventType = events.NewEventType[annotator.CanvasEvent]()

type donburiSink struct {
	world donburi.World
}

// NewDonburiSink creates an EventSink backed by a Donburi world. Events are
// queued on CanvasEventType and delivered by ProcessEvents.
func NewDonburiSink(world donburi.World) annotator.EventSink {
	return &donburiSink{world: world}
}

func (s *donburiSink) EmitEvent(event annotator.CanvasEvent) {
	CanvasEventType.Publish(s.world, event)
}
