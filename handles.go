package annotator

import "math"

// HandleType identifies a draggable control on a bounding box.
type HandleType uint8

const (
	HandleNone HandleType = iota // no handle
	HandleNW                     // top-left corner
	HandleNE                     // top-right corner
	HandleSE                     // bottom-right corner
	HandleSW                     // bottom-left corner
	HandleN                      // top edge midpoint
	HandleE                      // right edge midpoint
	HandleS                      // bottom edge midpoint
	HandleW                      // left edge midpoint
	HandleMove                   // box interior
)

var handleNames = [...]string{"none", "nw", "ne", "se", "sw", "n", "e", "s", "w", "move"}

func (h HandleType) String() string {
	if int(h) < len(handleNames) {
		return handleNames[h]
	}
	return "unknown"
}

const (
	defaultMinBBoxSize = 10.0

	handleMinSize     = 6.0
	handleBaseSize    = 8.0
	edgeHandleMinZoom = 0.5
)

// Handle is the square hit area of one control, in image coordinates.
type Handle struct {
	Type HandleType
	Rect Rect
}

// HandleSize returns the side length of a handle at the given zoom. Handles
// grow in image space as the view zooms out so they stay clickable.
func HandleSize(zoom float64) float64 {
	if zoom <= 0 {
		return handleMinSize
	}
	return math.Max(handleMinSize, handleBaseSize/zoom)
}

// HandlesFor returns the handles of box in hit-test order: the four corners,
// then the four edge midpoints when zoom > 0.5.
func HandlesFor(box Rect, zoom float64) []Handle {
	size := HandleSize(zoom)
	half := size / 2
	at := func(t HandleType, cx, cy float64) Handle {
		return Handle{Type: t, Rect: Rect{X: cx - half, Y: cy - half, Width: size, Height: size}}
	}

	handles := make([]Handle, 0, 8)
	handles = append(handles,
		at(HandleNW, box.X, box.Y),
		at(HandleNE, box.Right(), box.Y),
		at(HandleSE, box.Right(), box.Bottom()),
		at(HandleSW, box.X, box.Bottom()),
	)
	if zoom > edgeHandleMinZoom {
		midX := box.X + box.Width/2
		midY := box.Y + box.Height/2
		handles = append(handles,
			at(HandleN, midX, box.Y),
			at(HandleE, box.Right(), midY),
			at(HandleS, midX, box.Bottom()),
			at(HandleW, box.X, midY),
		)
	}
	return handles
}

// HandleAt returns the handle under p. Handles take precedence over the box
// interior, which yields HandleMove. Returns HandleNone when p misses the box.
func HandleAt(p Vec2, box Rect, zoom float64) HandleType {
	for _, h := range HandlesFor(box, zoom) {
		if h.Rect.Contains(p.X, p.Y) {
			return h.Type
		}
	}
	if box.Contains(p.X, p.Y) {
		return HandleMove
	}
	return HandleNone
}

// ApplyHandle returns the geometry of original after dragging handle from
// start to current. Positions are clamped at zero and sizes at minSize.
// HandleNone returns original unchanged.
func ApplyHandle(h HandleType, original Rect, start, current Vec2, minSize float64) Rect {
	dx := current.X - start.X
	dy := current.Y - start.Y
	r := original

	switch h {
	case HandleMove:
		r.X = math.Max(0, original.X+dx)
		r.Y = math.Max(0, original.Y+dy)
	case HandleNW:
		r.X = math.Max(0, original.X+dx)
		r.Y = math.Max(0, original.Y+dy)
		r.Width = math.Max(minSize, original.Width-dx)
		r.Height = math.Max(minSize, original.Height-dy)
	case HandleNE:
		r.Y = math.Max(0, original.Y+dy)
		r.Width = math.Max(minSize, original.Width+dx)
		r.Height = math.Max(minSize, original.Height-dy)
	case HandleSE:
		r.Width = math.Max(minSize, original.Width+dx)
		r.Height = math.Max(minSize, original.Height+dy)
	case HandleSW:
		r.X = math.Max(0, original.X+dx)
		r.Width = math.Max(minSize, original.Width-dx)
		r.Height = math.Max(minSize, original.Height+dy)
	case HandleN:
		r.Y = math.Max(0, original.Y+dy)
		r.Height = math.Max(minSize, original.Height-dy)
	case HandleE:
		r.Width = math.Max(minSize, original.Width+dx)
	case HandleS:
		r.Height = math.Max(minSize, original.Height+dy)
	case HandleW:
		r.X = math.Max(0, original.X+dx)
		r.Width = math.Max(minSize, original.Width-dx)
	}
	return r
}

// CursorForHandle returns the CSS-style cursor name for a handle.
func CursorForHandle(h HandleType) string {
	switch h {
	case HandleNW, HandleSE:
		return "nw-resize"
	case HandleNE, HandleSW:
		return "ne-resize"
	case HandleN, HandleS:
		return "n-resize"
	case HandleE, HandleW:
		return "e-resize"
	case HandleMove:
		return "move"
	default:
		return "default"
	}
}
