package annotator

import "github.com/hajimehoshi/ebiten/v2"

type injectKind uint8

const (
	injectDown injectKind = iota
	injectMove
	injectUp
	injectLeave
	injectWheel
	injectKeyDown
	injectKeyUp
)

// syntheticEvent is a single queued input event. Coordinates are client
// coordinates, converted exactly like real pointer input.
type syntheticEvent struct {
	kind   injectKind
	x, y   float64
	button MouseButton
	mods   KeyModifiers
	delta  float64
	key    ebiten.Key
}

func (c *Canvas) inject(e syntheticEvent) {
	if c.closed {
		return
	}
	c.injectQueue = append(c.injectQueue, e)
}

// InjectPress queues a pointer press at client (x, y). Queued events are
// consumed one per Update.
func (c *Canvas) InjectPress(x, y float64, button MouseButton, mods KeyModifiers) {
	c.inject(syntheticEvent{kind: injectDown, x: x, y: y, button: button, mods: mods})
}

// InjectMove queues a pointer move to client (x, y).
func (c *Canvas) InjectMove(x, y float64) {
	c.inject(syntheticEvent{kind: injectMove, x: x, y: y})
}

// InjectRelease queues a pointer release at client (x, y).
func (c *Canvas) InjectRelease(x, y float64, button MouseButton) {
	c.inject(syntheticEvent{kind: injectUp, x: x, y: y, button: button})
}

// InjectClick queues a left press followed by a release at the same
// position. Consumes two frames.
func (c *Canvas) InjectClick(x, y float64, mods KeyModifiers) {
	c.InjectPress(x, y, MouseButtonLeft, mods)
	c.InjectRelease(x, y, MouseButtonLeft)
}

// InjectDrag queues a full left-button drag: press at (fromX, fromY),
// frames-2 interpolated moves and a release at (toX, toY). The sequence
// consumes frames frames; the minimum is 2.
func (c *Canvas) InjectDrag(fromX, fromY, toX, toY float64, frames int) {
	if frames < 2 {
		frames = 2
	}
	c.InjectPress(fromX, fromY, MouseButtonLeft, 0)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		c.InjectMove(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	c.InjectRelease(toX, toY, MouseButtonLeft)
}

// InjectWheel queues a wheel step at client (x, y).
func (c *Canvas) InjectWheel(x, y, delta float64) {
	c.inject(syntheticEvent{kind: injectWheel, x: x, y: y, delta: delta})
}

// InjectKey queues a key press or release.
func (c *Canvas) InjectKey(key ebiten.Key, down bool) {
	kind := injectKeyUp
	if down {
		kind = injectKeyDown
	}
	c.inject(syntheticEvent{kind: kind, key: key})
}

// InjectLeave queues the pointer leaving the canvas.
func (c *Canvas) InjectLeave() {
	c.inject(syntheticEvent{kind: injectLeave})
}

// HasInjectedInput reports whether synthetic events are waiting. Real input
// should be skipped while it returns true.
func (c *Canvas) HasInjectedInput() bool {
	return len(c.injectQueue) > 0
}

// processInjectedInput pops one event from the queue and dispatches it.
// Returns true if an event was consumed.
func (c *Canvas) processInjectedInput() bool {
	if len(c.injectQueue) == 0 {
		return false
	}
	evt := c.injectQueue[0]
	copy(c.injectQueue, c.injectQueue[1:])
	c.injectQueue = c.injectQueue[:len(c.injectQueue)-1]

	switch evt.kind {
	case injectDown:
		c.PointerDown(evt.x, evt.y, evt.button, evt.mods)
	case injectMove:
		c.PointerMove(evt.x, evt.y)
	case injectUp:
		c.PointerUp(evt.x, evt.y, evt.button, evt.mods)
	case injectLeave:
		c.PointerLeave()
	case injectWheel:
		c.Wheel(evt.x, evt.y, evt.delta)
	case injectKeyDown:
		c.KeyDown(evt.key)
	case injectKeyUp:
		c.KeyUp(evt.key)
	}
	return true
}
