package annotator

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"
)

// --- Pointer state machine ---
//
// All pointer events take client coordinates. Pan deltas are measured in
// canvas pixels; every other position is converted to image space.

// PointerDown starts an interaction. It is ignored unless the canvas is idle.
func (c *Canvas) PointerDown(cx, cy float64, button MouseButton, mods KeyModifiers) {
	if c.closed || c.state != StateIdle {
		return
	}
	c.hoverTimer.cancel()

	cp := c.view.ClientToCanvas(cx, cy)
	if c.panMode || button == MouseButtonMiddle || button == MouseButtonRight {
		c.lastPan = cp
		c.setState(StatePanning)
		return
	}
	if button != MouseButtonLeft {
		return
	}

	p := c.view.ScreenToImage(cp.X, cp.Y)
	if c.tool == ToolBBox {
		if h, i, ok := c.boxHandleAt(p); ok {
			c.beginHandleDrag(h, i, p)
			return
		}
	}
	if ann, ok := MaskAtPoint(p, c.annotations); ok {
		c.toggleMask(ann.ID, mods)
		return
	}
	if c.drawsBoxes() {
		c.drawStart = p
		c.drawRect = Rect{X: p.X, Y: p.Y}
		c.setState(StateDrawingBBox)
	}
}

// PointerMove updates the active interaction, or hover tracking when idle.
func (c *Canvas) PointerMove(cx, cy float64) {
	if c.closed {
		return
	}
	cp := c.view.ClientToCanvas(cx, cy)

	switch c.state {
	case StatePanning:
		c.view.PanBy(cp.X-c.lastPan.X, cp.Y-c.lastPan.Y)
		c.lastPan = cp
	case StateDrawingBBox:
		p := c.view.ScreenToImage(cp.X, cp.Y)
		c.drawRect = rectFromPoints(c.drawStart, p)
		c.fireStateChange()
	case StateDraggingHandle:
		p := c.view.ScreenToImage(cp.X, cp.Y)
		c.dragRect = ApplyHandle(c.activeHandle, c.dragOrigin, c.dragStart, p, c.cfg.MinBBoxSize)
		c.dragTimer.push(c.dragRect)
	default:
		p := c.view.ScreenToImage(cp.X, cp.Y)
		c.hovering = true
		c.hoverPoint = p
		c.fireStateChange()
		ann, ok := MaskAtPoint(p, c.annotations)
		c.hoverTimer.push(hoverResult{id: ann.ID, ok: ok})
	}
}

// PointerUp ends the active interaction.
func (c *Canvas) PointerUp(cx, cy float64, button MouseButton, mods KeyModifiers) {
	if c.closed {
		return
	}
	switch c.state {
	case StateDrawingBBox:
		p := c.view.ClientToImage(cx, cy)
		rect := rectFromPoints(c.drawStart, p)
		c.drawRect = Rect{}
		c.setState(StateIdle)
		c.finishBox(rect)
	case StateDraggingHandle:
		c.commitDrag()
	case StatePanning:
		c.setState(StateIdle)
	}
}

// PointerLeave cancels hover tracking and ends any interaction. A box being
// drawn is discarded; a handle drag commits its last geometry.
func (c *Canvas) PointerLeave() {
	if c.closed {
		return
	}
	c.hoverTimer.cancel()
	switch c.state {
	case StateDrawingBBox:
		c.drawRect = Rect{}
		c.setState(StateIdle)
	case StateDraggingHandle:
		c.commitDrag()
	case StatePanning:
		c.setState(StateIdle)
	}
	if c.hovering || c.hasHoverMask {
		c.hovering = false
		c.hasHoverMask = false
		c.hoverMask = 0
		c.fireStateChange()
	}
}

// Wheel zooms around the pointer. A positive delta zooms in.
func (c *Canvas) Wheel(cx, cy, delta float64) {
	if c.closed {
		return
	}
	cp := c.view.ClientToCanvas(cx, cy)
	c.view.ZoomToPoint(cp.X, cp.Y, delta)
}

// KeyDown enables pan mode when key is the pan key.
func (c *Canvas) KeyDown(key ebiten.Key) {
	if c.closed || key != c.panKey || c.panMode {
		return
	}
	c.panMode = true
	c.fireStateChange()
}

// KeyUp disables pan mode when key is the pan key. An ongoing pan continues
// until the pointer is released.
func (c *Canvas) KeyUp(key ebiten.Key) {
	if c.closed || key != c.panKey || !c.panMode {
		return
	}
	c.panMode = false
	c.fireStateChange()
}

// Update advances the script runner, one queued synthetic event, the hover
// and drag timers, and the viewport animation.
func (c *Canvas) Update(dt time.Duration) {
	if c.closed {
		return
	}
	if c.script != nil {
		c.script.step(c)
	}
	c.processInjectedInput()
	c.hoverTimer.advance(dt)
	c.dragTimer.advance(dt)
	c.view.Update(float32(dt.Seconds()))
}

// Close ends any interaction, cancels all timers and makes the canvas ignore
// further events. Calling Close twice is harmless.
func (c *Canvas) Close() {
	if c.closed {
		return
	}
	c.PointerLeave()
	c.hoverTimer.cancel()
	c.dragTimer.cancel()
	c.injectQueue = nil
	c.script = nil
	c.screenshotQueue = nil
	c.closed = true
}

// --- Internals ---

func (c *Canvas) setState(s InteractionState) {
	if c.state == s {
		return
	}
	if c.debug {
		c.log.Debug("state", zap.Stringer("from", c.state), zap.Stringer("to", s))
	}
	c.state = s
	c.fireStateChange()
}

// drawsBoxes reports whether the active tool creates boxes on drag. With the
// segmentation tool a drawn box selects the masks it touches.
func (c *Canvas) drawsBoxes() bool {
	return (c.tool == ToolBBox || c.tool == ToolSegmentation) && IsToolAllowed(c.phase, c.tool)
}

// boxHandleAt finds the box control under p: handles and interior of the
// selected box first, then the interior of the topmost other box.
func (c *Canvas) boxHandleAt(p Vec2) (HandleType, int, bool) {
	if i := c.boxIndex(c.selectedBox); i >= 0 {
		if h := HandleAt(p, c.boxes[i].Rect(), c.view.Zoom()); h != HandleNone {
			return h, i, true
		}
	}
	for i := len(c.boxes) - 1; i >= 0; i-- {
		if c.boxes[i].Rect().Contains(p.X, p.Y) {
			return HandleMove, i, true
		}
	}
	return HandleNone, -1, false
}

func (c *Canvas) beginHandleDrag(h HandleType, i int, p Vec2) {
	box := c.boxes[i]
	c.selectedBox = box.ID
	c.dragBoxID = box.ID
	c.activeHandle = h
	c.dragOrigin = box.Rect()
	c.dragRect = c.dragOrigin
	c.dragStart = p
	c.setState(StateDraggingHandle)
}

// deliverDrag is the throttled drag callback.
func (c *Canvas) deliverDrag(r Rect) {
	if c.state != StateDraggingHandle {
		return
	}
	c.applyDrag(r, false)
}

// commitDrag applies the last computed geometry without waiting for the
// throttle window and returns to idle.
func (c *Canvas) commitDrag() {
	c.dragTimer.cancel()
	c.applyDrag(c.dragRect, true)
	c.metrics.boxEdited()
	c.activeHandle = HandleNone
	c.dragBoxID = ""
	c.setState(StateIdle)
}

func (c *Canvas) applyDrag(r Rect, final bool) {
	i := c.boxIndex(c.dragBoxID)
	if i < 0 {
		return
	}
	c.boxes[i] = c.boxes[i].WithRect(r).Normalize()
	c.fireBBoxUpdate(BBoxUpdate{Box: c.boxes[i], Handle: c.activeHandle, Final: final})
}

func (c *Canvas) finishBox(rect Rect) {
	if rect.Width <= c.cfg.MinBBoxSize || rect.Height <= c.cfg.MinBBoxSize {
		c.metrics.boxDiscarded()
		if c.debug {
			c.log.Debug("box discarded", zap.Float64("w", rect.Width), zap.Float64("h", rect.Height))
		}
		return
	}

	c.selected = MasksIntersectingBBox(rect, c.annotations)
	c.fireSelection()

	box := BoundingBox{
		ID:     uuid.NewString(),
		X:      rect.X,
		Y:      rect.Y,
		Width:  rect.Width,
		Height: rect.Height,
		Label:  c.cfg.DefaultLabel,
	}.Normalize()
	c.metrics.boxCompleted()
	c.fireBBoxComplete(box)
}

// toggleMask applies a click on mask id. Multi-select modifiers toggle its
// membership; a plain click selects only id, or clears the selection when
// id was already selected.
func (c *Canvas) toggleMask(id int, mods KeyModifiers) {
	idx := slices.Index(c.selected, id)
	switch {
	case mods.multiSelect() && idx >= 0:
		c.selected = slices.Delete(c.selected, idx, idx+1)
	case mods.multiSelect():
		c.selected = append(c.selected, id)
	case idx >= 0:
		c.selected = nil
	default:
		c.selected = []int{id}
	}
	c.fireSelection()
}

func (c *Canvas) commitHover(h hoverResult) {
	if h.ok == c.hasHoverMask && (!h.ok || h.id == c.hoverMask) {
		return
	}
	c.hoverMask = h.id
	c.hasHoverMask = h.ok
	c.fireStateChange()
}
