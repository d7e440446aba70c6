package annotator

import (
	"slices"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"
)

const defaultBBoxLabel = "entity"

// InteractionState is the exclusive pointer mode of a Canvas. Hovering is
// tracked separately since it overlays StateIdle.
type InteractionState uint8

const (
	StateIdle           InteractionState = iota // waiting for input
	StatePanning                                // dragging the view
	StateDrawingBBox                            // rubber-banding a new box
	StateDraggingHandle                         // moving or resizing an existing box
)

var stateNames = [...]string{"idle", "panning", "drawing", "dragging-handle"}

func (s InteractionState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// StateChange is a snapshot of the canvas interaction state, delivered to
// OnStateChange callbacks whenever any of its fields changes.
type StateChange struct {
	State          InteractionState
	PanMode        bool
	Hovering       bool
	HoveredPoint   Vec2 // image space, updated on every idle move
	HoveredMask    int  // valid when HasHoveredMask
	HasHoveredMask bool
	DrawingRect    Rect // valid in StateDrawingBBox
	ActiveHandle   HandleType
}

// BBoxUpdate reports new geometry for an edited box. Final is set once, when
// the drag ends.
type BBoxUpdate struct {
	Box    BoundingBox
	Handle HandleType
	Final  bool
}

// CanvasEventType identifies the kind of a CanvasEvent.
type CanvasEventType uint8

const (
	EventBBoxComplete        CanvasEventType = iota // a drawn box was kept
	EventBBoxUpdate                                 // a box was moved or resized
	EventMaskSelectionChange                        // selected mask set changed
	EventStateChange                                // interaction snapshot changed
)

// CanvasEvent carries canvas output for an EventSink.
type CanvasEvent struct {
	Type          CanvasEventType
	Box           BoundingBox // EventBBoxComplete, EventBBoxUpdate
	Final         bool        // EventBBoxUpdate
	SelectedMasks []int       // EventMaskSelectionChange
	State         StateChange // EventStateChange
}

// EventSink receives every canvas event, after the registered callbacks.
type EventSink interface {
	EmitEvent(event CanvasEvent)
}

// --- Handler registry ---

type bboxHandler struct {
	id uint32
	fn func(BoundingBox)
}

type updateHandler struct {
	id uint32
	fn func(BBoxUpdate)
}

type selectionHandler struct {
	id uint32
	fn func([]int)
}

type stateHandler struct {
	id uint32
	fn func(StateChange)
}

type handlerRegistry struct {
	bboxComplete []bboxHandler
	bboxUpdate   []updateHandler
	selection    []selectionHandler
	state        []stateHandler
	nextID       uint32
}

// CallbackHandle allows removing a registered canvas callback.
type CallbackHandle struct {
	id    uint32
	reg   *handlerRegistry
	event CanvasEventType
}

// Remove unregisters this callback so it no longer fires.
func (h CallbackHandle) Remove() {
	if h.reg == nil {
		return
	}
	switch h.event {
	case EventBBoxComplete:
		h.reg.bboxComplete = removeHandler(h.reg.bboxComplete, h.id, func(x bboxHandler) uint32 { return x.id })
	case EventBBoxUpdate:
		h.reg.bboxUpdate = removeHandler(h.reg.bboxUpdate, h.id, func(x updateHandler) uint32 { return x.id })
	case EventMaskSelectionChange:
		h.reg.selection = removeHandler(h.reg.selection, h.id, func(x selectionHandler) uint32 { return x.id })
	case EventStateChange:
		h.reg.state = removeHandler(h.reg.state, h.id, func(x stateHandler) uint32 { return x.id })
	}
}

// removeHandler returns s without the handler id. The result never shares a
// backing array with s, so a dispatch loop ranging over s is unaffected.
func removeHandler[T any](s []T, id uint32, idOf func(T) uint32) []T {
	i := slices.IndexFunc(s, func(x T) bool { return idOf(x) == id })
	if i < 0 {
		return s
	}
	return slices.Delete(slices.Clone(s), i, i+1)
}

// Canvas is the interaction core of the annotation workspace. It turns
// pointer and key events into viewport changes, mask selection, new boxes
// and box edits. A Canvas is not safe for concurrent use; drive it from one
// goroutine and call Update once per frame.
type Canvas struct {
	cfg     InteractionConfig
	view    *Viewport
	log     *zap.Logger
	metrics *Metrics
	sink    EventSink
	debug   bool

	phase   Phase
	tool    Tool
	panKey  ebiten.Key
	panMode bool
	closed  bool

	state     InteractionState
	lastPan   Vec2 // canvas pixels
	drawStart Vec2
	drawRect  Rect

	annotations []ServerAnnotation
	selected    []int
	boxes       []BoundingBox
	selectedBox string

	activeHandle HandleType
	dragBoxID    string
	dragOrigin   Rect
	dragStart    Vec2
	dragRect     Rect

	hovering     bool
	hoverPoint   Vec2
	hoverMask    int
	hasHoverMask bool

	hoverTimer *debouncer[hoverResult]
	dragTimer  *throttle[Rect]

	handlers        handlerRegistry
	injectQueue     []syntheticEvent
	script          *ScriptRunner
	screenshotQueue []string
}

type hoverResult struct {
	id int
	ok bool
}

// NewCanvas creates a canvas from cfg. A nil cfg uses DefaultConfig.
// Unparseable phase or pan-key settings fall back to the defaults.
func NewCanvas(cfg *Config, opts ...Option) *Canvas {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	o := buildOptions(opts)
	ic := cfg.Interaction
	if ic.MinBBoxSize <= 0 {
		ic.MinBBoxSize = defaultMinBBoxSize
	}
	if ic.DefaultLabel == "" {
		ic.DefaultLabel = defaultBBoxLabel
	}
	if ic.HoverDebounce <= 0 {
		ic.HoverDebounce = defaultHoverDebounce
	}
	if ic.DragThrottle <= 0 {
		ic.DragThrottle = defaultDragThrottle
	}

	c := &Canvas{
		cfg:     ic,
		view:    NewViewport(cfg.Viewport),
		log:     o.log.Named("canvas"),
		metrics: o.metrics,
		sink:    o.sink,
		debug:   ic.Debug,
	}
	c.hoverTimer = newDebouncer(ic.HoverDebounce, c.commitHover)
	c.dragTimer = newThrottle(ic.DragThrottle, c.deliverDrag)

	key, ok := parseKey(ic.PanKey)
	if !ok {
		key = ebiten.KeySpace
	}
	c.panKey = key

	phase, err := ParsePhase(ic.DefaultPhase)
	if err != nil {
		phase = PhaseSegmentation
	}
	c.phase = phase
	c.tool = defaultToolFor(phase)
	return c
}

// defaultToolFor prefers the box tool, then the first tool phase allows.
func defaultToolFor(phase Phase) Tool {
	if IsToolAllowed(phase, ToolBBox) {
		return ToolBBox
	}
	if tools := AllowedTools(phase); len(tools) > 0 {
		return tools[0]
	}
	return ToolNone
}

// Viewport returns the canvas viewport.
func (c *Canvas) Viewport() *Viewport { return c.view }

// State returns the current interaction state.
func (c *Canvas) State() InteractionState { return c.state }

// Hovering reports whether the pointer is over the canvas while idle.
func (c *Canvas) Hovering() bool { return c.hovering }

// HoveredPoint returns the last idle pointer position in image space.
func (c *Canvas) HoveredPoint() Vec2 { return c.hoverPoint }

// HoveredMask returns the committed (debounced) hovered mask.
func (c *Canvas) HoveredMask() (int, bool) { return c.hoverMask, c.hasHoverMask }

// PanMode reports whether the pan key is held.
func (c *Canvas) PanMode() bool { return c.panMode }

// Phase returns the workflow phase.
func (c *Canvas) Phase() Phase { return c.phase }

// Tool returns the active tool.
func (c *Canvas) Tool() Tool { return c.tool }

// Closed reports whether Close has been called.
func (c *Canvas) Closed() bool { return c.closed }

// SetPhase changes the workflow phase. A tool the new phase forbids is
// replaced by the default tool for that phase.
func (c *Canvas) SetPhase(phase Phase) {
	if c.phase == phase {
		return
	}
	c.phase = phase
	if !IsToolAllowed(phase, c.tool) {
		prev := c.tool
		c.tool = defaultToolFor(phase)
		c.log.Debug("tool dropped by phase change",
			zap.Stringer("phase", phase), zap.Stringer("from", prev), zap.Stringer("to", c.tool))
	}
}

// SetTool activates tool. It returns a *ToolError when the current phase
// does not allow it; the active tool is then unchanged.
func (c *Canvas) SetTool(tool Tool) error {
	if !IsToolAllowed(c.phase, tool) {
		return &ToolError{Phase: c.phase, Tool: tool, Message: DisallowedMessage(c.phase, tool)}
	}
	c.tool = tool
	return nil
}

// SetAnnotations replaces the externally produced masks.
func (c *Canvas) SetAnnotations(anns []ServerAnnotation) {
	c.annotations = append(c.annotations[:0], anns...)
}

// Annotations returns the current masks. The slice must not be modified.
func (c *Canvas) Annotations() []ServerAnnotation { return c.annotations }

// SetSelectedMasks replaces the mask selection without firing callbacks.
func (c *Canvas) SetSelectedMasks(ids []int) {
	c.selected = append([]int(nil), ids...)
}

// SelectedMasks returns a copy of the selected mask IDs.
func (c *Canvas) SelectedMasks() []int {
	return append([]int(nil), c.selected...)
}

// SetBoxes replaces the editable boxes. The selected box is kept when it
// still exists.
func (c *Canvas) SetBoxes(boxes []BoundingBox) {
	c.boxes = append(c.boxes[:0], boxes...)
	if c.boxIndex(c.selectedBox) < 0 {
		c.selectedBox = ""
	}
}

// Boxes returns a copy of the editable boxes.
func (c *Canvas) Boxes() []BoundingBox {
	return append([]BoundingBox(nil), c.boxes...)
}

// SelectBox makes the box with id the one whose handles are shown. An
// unknown id clears the box selection and returns false.
func (c *Canvas) SelectBox(id string) bool {
	if c.boxIndex(id) < 0 {
		c.selectedBox = ""
		return false
	}
	c.selectedBox = id
	return true
}

// SelectedBox returns the selected box.
func (c *Canvas) SelectedBox() (BoundingBox, bool) {
	if i := c.boxIndex(c.selectedBox); i >= 0 {
		return c.boxes[i], true
	}
	return BoundingBox{}, false
}

// DrawingRect returns the rectangle being drawn, in image space.
func (c *Canvas) DrawingRect() (Rect, bool) {
	return c.drawRect, c.state == StateDrawingBBox
}

// ActiveHandle returns the handle being dragged, or HandleNone.
func (c *Canvas) ActiveHandle() HandleType { return c.activeHandle }

// CursorFor returns the cursor name to show with the pointer at client
// coordinates (cx, cy).
func (c *Canvas) CursorFor(cx, cy float64) string {
	switch c.state {
	case StatePanning:
		return "grabbing"
	case StateDraggingHandle:
		return CursorForHandle(c.activeHandle)
	case StateDrawingBBox:
		return "crosshair"
	}
	if c.panMode {
		return "grab"
	}
	if c.tool == ToolBBox {
		p := c.view.ClientToImage(cx, cy)
		if i := c.boxIndex(c.selectedBox); i >= 0 {
			if h := HandleAt(p, c.boxes[i].Rect(), c.view.Zoom()); h != HandleNone {
				return CursorForHandle(h)
			}
		}
	}
	if c.drawsBoxes() {
		return "crosshair"
	}
	return "default"
}

// Snapshot returns the current interaction state.
func (c *Canvas) Snapshot() StateChange {
	s := StateChange{
		State:          c.state,
		PanMode:        c.panMode,
		Hovering:       c.hovering,
		HoveredPoint:   c.hoverPoint,
		HoveredMask:    c.hoverMask,
		HasHoveredMask: c.hasHoverMask,
		ActiveHandle:   c.activeHandle,
	}
	if c.state == StateDrawingBBox {
		s.DrawingRect = c.drawRect
	}
	return s
}

// --- Callback registration ---

// OnBBoxComplete registers a callback for boxes kept after drawing.
func (c *Canvas) OnBBoxComplete(fn func(BoundingBox)) CallbackHandle {
	c.handlers.nextID++
	id := c.handlers.nextID
	c.handlers.bboxComplete = append(c.handlers.bboxComplete, bboxHandler{id: id, fn: fn})
	return CallbackHandle{id: id, reg: &c.handlers, event: EventBBoxComplete}
}

// OnBBoxUpdate registers a callback for box moves and resizes. It fires at
// the throttled cadence during a drag and once more, with Final set, when
// the drag ends.
func (c *Canvas) OnBBoxUpdate(fn func(BBoxUpdate)) CallbackHandle {
	c.handlers.nextID++
	id := c.handlers.nextID
	c.handlers.bboxUpdate = append(c.handlers.bboxUpdate, updateHandler{id: id, fn: fn})
	return CallbackHandle{id: id, reg: &c.handlers, event: EventBBoxUpdate}
}

// OnMaskSelectionChange registers a callback for mask selection changes.
// The slice passed to fn is a copy.
func (c *Canvas) OnMaskSelectionChange(fn func([]int)) CallbackHandle {
	c.handlers.nextID++
	id := c.handlers.nextID
	c.handlers.selection = append(c.handlers.selection, selectionHandler{id: id, fn: fn})
	return CallbackHandle{id: id, reg: &c.handlers, event: EventMaskSelectionChange}
}

// OnStateChange registers a callback for interaction snapshots.
func (c *Canvas) OnStateChange(fn func(StateChange)) CallbackHandle {
	c.handlers.nextID++
	id := c.handlers.nextID
	c.handlers.state = append(c.handlers.state, stateHandler{id: id, fn: fn})
	return CallbackHandle{id: id, reg: &c.handlers, event: EventStateChange}
}

// --- Event dispatch ---

func (c *Canvas) fireBBoxComplete(box BoundingBox) {
	for _, h := range c.handlers.bboxComplete {
		h.fn(box)
	}
	c.emit(CanvasEvent{Type: EventBBoxComplete, Box: box})
}

func (c *Canvas) fireBBoxUpdate(u BBoxUpdate) {
	for _, h := range c.handlers.bboxUpdate {
		h.fn(u)
	}
	c.emit(CanvasEvent{Type: EventBBoxUpdate, Box: u.Box, Final: u.Final})
}

func (c *Canvas) fireSelection() {
	c.metrics.selectionChanged()
	for _, h := range c.handlers.selection {
		h.fn(c.SelectedMasks())
	}
	c.emit(CanvasEvent{Type: EventMaskSelectionChange, SelectedMasks: c.SelectedMasks()})
}

func (c *Canvas) fireStateChange() {
	snap := c.Snapshot()
	for _, h := range c.handlers.state {
		h.fn(snap)
	}
	c.emit(CanvasEvent{Type: EventStateChange, State: snap})
}

func (c *Canvas) emit(e CanvasEvent) {
	if c.sink != nil {
		c.sink.EmitEvent(e)
	}
}

func (c *Canvas) boxIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range c.boxes {
		if c.boxes[i].ID == id {
			return i
		}
	}
	return -1
}
