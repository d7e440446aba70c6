package annotator

import "testing"

func TestHandleSize(t *testing.T) {
	tests := []struct {
		zoom, want float64
	}{
		{1, 8},
		{0.5, 16},
		{4, handleMinSize},
		{0, handleMinSize},
		{-2, handleMinSize},
	}
	for _, tt := range tests {
		assertNear(t, "HandleSize", HandleSize(tt.zoom), tt.want)
	}
}

func TestHandlesForEdgeVisibility(t *testing.T) {
	box := Rect{X: 100, Y: 100, Width: 200, Height: 100}
	if n := len(HandlesFor(box, 1)); n != 8 {
		t.Errorf("zoom 1: %d handles, want 8", n)
	}
	if n := len(HandlesFor(box, 0.5)); n != 4 {
		t.Errorf("zoom 0.5: %d handles, want 4", n)
	}
	h := HandlesFor(box, 1)[2]
	if h.Type != HandleSE || h.Rect != (Rect{X: 296, Y: 196, Width: 8, Height: 8}) {
		t.Errorf("SE handle = %+v", h)
	}
}

func TestHandleAt(t *testing.T) {
	box := Rect{X: 100, Y: 100, Width: 200, Height: 100}
	tests := []struct {
		name string
		p    Vec2
		zoom float64
		want HandleType
	}{
		{"nw corner", Vec2{100, 100}, 1, HandleNW},
		{"ne corner", Vec2{302, 98}, 1, HandleNE},
		{"se corner", Vec2{300, 200}, 1, HandleSE},
		{"sw corner", Vec2{100, 200}, 1, HandleSW},
		{"n edge", Vec2{200, 100}, 1, HandleN},
		{"e edge", Vec2{300, 150}, 1, HandleE},
		{"s edge", Vec2{200, 200}, 1, HandleS},
		{"w edge", Vec2{100, 150}, 1, HandleW},
		{"interior", Vec2{150, 150}, 1, HandleMove},
		{"outside", Vec2{50, 50}, 1, HandleNone},
		{"edge hidden when zoomed out", Vec2{200, 100}, 0.5, HandleMove},
		{"grown corner when zoomed out", Vec2{93, 93}, 0.5, HandleNW},
	}
	for _, tt := range tests {
		if got := HandleAt(tt.p, box, tt.zoom); got != tt.want {
			t.Errorf("%s: HandleAt(%v) = %v, want %v", tt.name, tt.p, got, tt.want)
		}
	}
}

func TestApplyHandle(t *testing.T) {
	orig := Rect{X: 100, Y: 100, Width: 50, Height: 50}
	start := Vec2{0, 0}
	tests := []struct {
		h    HandleType
		to   Vec2
		want Rect
	}{
		{HandleMove, Vec2{10, -20}, Rect{110, 80, 50, 50}},
		{HandleSE, Vec2{20, 10}, Rect{100, 100, 70, 60}},
		{HandleNW, Vec2{-10, -5}, Rect{90, 95, 60, 55}},
		{HandleNE, Vec2{10, 10}, Rect{100, 110, 60, 40}},
		{HandleSW, Vec2{10, 10}, Rect{110, 100, 40, 60}},
		{HandleN, Vec2{99, -10}, Rect{100, 90, 50, 60}},
		{HandleE, Vec2{15, 99}, Rect{100, 100, 65, 50}},
		{HandleS, Vec2{99, 15}, Rect{100, 100, 50, 65}},
		{HandleW, Vec2{-15, 99}, Rect{85, 100, 65, 50}},
		{HandleNone, Vec2{30, 30}, orig},
	}
	for _, tt := range tests {
		got := ApplyHandle(tt.h, orig, start, tt.to, 10)
		if got != tt.want {
			t.Errorf("%v to %v: got %v, want %v", tt.h, tt.to, got, tt.want)
		}
	}
}

func TestApplyHandleClamps(t *testing.T) {
	orig := Rect{X: 20, Y: 20, Width: 50, Height: 50}
	if got := ApplyHandle(HandleSE, orig, Vec2{}, Vec2{-100, -100}, 10); got.Width != 10 || got.Height != 10 {
		t.Errorf("SE shrink: %v, want 10x10", got)
	}
	if got := ApplyHandle(HandleMove, orig, Vec2{}, Vec2{-100, -100}, 10); got.X != 0 || got.Y != 0 {
		t.Errorf("move past origin: %v, want X=Y=0", got)
	}
	if got := ApplyHandle(HandleNW, orig, Vec2{}, Vec2{-30, -30}, 10); got.X != 0 || got.Y != 0 {
		t.Errorf("NW past origin: %v, want X=Y=0", got)
	}
}

func TestApplyHandleIsRelativeToOriginal(t *testing.T) {
	orig := Rect{X: 100, Y: 100, Width: 50, Height: 50}
	start := Vec2{150, 150}
	// Repeated moves are computed from the original, so returning to the
	// start restores it exactly.
	for _, p := range []Vec2{{170, 160}, {140, 120}, {180, 190}} {
		a := ApplyHandle(HandleSE, orig, start, p, 10)
		b := ApplyHandle(HandleSE, orig, start, p, 10)
		if a != b {
			t.Errorf("non-deterministic result at %v: %v vs %v", p, a, b)
		}
	}
	if got := ApplyHandle(HandleSE, orig, start, start, 10); got != orig {
		t.Errorf("back at start: %v, want %v", got, orig)
	}
	if got := ApplyHandle(HandleNW, orig, Vec2{100, 100}, Vec2{100, 100}, 10); got != orig {
		t.Errorf("NW back at start: %v, want %v", got, orig)
	}
}

func TestCursorForHandle(t *testing.T) {
	tests := map[HandleType]string{
		HandleNW:   "nw-resize",
		HandleSE:   "nw-resize",
		HandleNE:   "ne-resize",
		HandleSW:   "ne-resize",
		HandleN:    "n-resize",
		HandleE:    "e-resize",
		HandleMove: "move",
		HandleNone: "default",
	}
	for h, want := range tests {
		if got := CursorForHandle(h); got != want {
			t.Errorf("CursorForHandle(%v) = %q, want %q", h, got, want)
		}
	}
}
