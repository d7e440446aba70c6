// Package annotator is the interaction core of an image annotation
// workspace built on [Ebitengine].
//
// It maps pointer input on a zoomable, pannable canvas to annotation
// operations: drawing bounding boxes, resizing and moving them with handles,
// selecting externally produced masks, and staging the results for a batch
// commit.
//
// # Quick start
//
// The simplest way to get started is [Run], which opens a window and drives
// a [Session] from the game loop:
//
//	s := annotator.NewSession(annotator.DefaultConfig())
//	s.SetImages(images)
//	annotator.Run(s, annotator.RunConfig{ImagePath: "photo.jpg"})
//
// For full control, feed pointer events into a [Canvas] yourself and call
// [Canvas.Update] once per frame with the frame duration:
//
//	c := annotator.NewCanvas(cfg)
//	c.OnBBoxComplete(func(b annotator.BoundingBox) { ... })
//	c.PointerDown(x, y, annotator.MouseButtonLeft, 0)
//	c.Update(time.Second / 60)
//
// # Coordinates
//
// Pointer events take client coordinates. The [Viewport] converts them to
// canvas pixels (scaled by the pixel ratio) and then to image pixels:
//
//	screen = image*zoom + pan
//
// Annotations are always stored in image pixels.
//
// # Timers
//
// Hover hit-testing is debounced and handle-drag updates are throttled.
// Both run on the frame clock advanced by [Canvas.Update], so a canvas never
// starts goroutines and tests can step time deterministically.
//
// # Phases
//
// A workflow [Phase] decides which [Tool] is available. [Canvas.SetTool] on a
// disallowed tool returns a [*ToolError] with a user-facing message.
//
// # Staging
//
// [StagingBuffer] keeps at most one pending annotation per image and groups
// them into [CommitRecord]s for a [Committer]. It and [LabelPalette] are
// safe for concurrent use; everything else belongs to the event loop.
//
// # Scripts and screenshots
//
// [LoadScript] reads a JSON list of pointer and key steps. Once attached with
// [Canvas.SetScript], [Canvas.Update] replays them one frame at a time. A
// "screenshot" step, [Canvas.Screenshot] or F12 in [Run] queues a capture
// that is written as a PNG after the next draw.
//
// [Ebitengine]: https://ebitengine.org
package annotator
