package annotator

import (
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

const frame = time.Second / 60

func TestInjectClickConsumesTwoFrames(t *testing.T) {
	c := newTestCanvas(t)
	c.SetAnnotations([]ServerAnnotation{squareMask(1, 0, 0, 50)})

	c.InjectClick(25, 25, 0)
	if len(c.injectQueue) != 2 {
		t.Fatalf("queued %d events, want 2", len(c.injectQueue))
	}
	c.Update(frame)
	if len(c.injectQueue) != 1 {
		t.Fatalf("after frame 1: %d queued", len(c.injectQueue))
	}
	c.Update(frame)
	if c.HasInjectedInput() {
		t.Error("queue not drained after frame 2")
	}
	if sel := c.SelectedMasks(); len(sel) != 1 || sel[0] != 1 {
		t.Errorf("SelectedMasks = %v, want [1]", sel)
	}
}

func TestInjectDrag(t *testing.T) {
	tests := []struct {
		name       string
		frames     int
		wantQueued int
	}{
		{"five frames", 5, 5},
		{"two frames", 2, 2},
		{"clamped to two", 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCanvas(t)
			var got []BoundingBox
			c.OnBBoxComplete(func(b BoundingBox) { got = append(got, b) })

			c.InjectDrag(100, 80, 10, 10, tt.frames)
			if len(c.injectQueue) != tt.wantQueued {
				t.Fatalf("queued %d events, want %d", len(c.injectQueue), tt.wantQueued)
			}
			for i := 0; i < tt.wantQueued-1; i++ {
				c.Update(frame)
			}
			if len(got) != 0 {
				t.Fatal("box completed before the release frame")
			}
			c.Update(frame)
			if len(got) != 1 || got[0].Rect() != (Rect{10, 10, 90, 70}) {
				t.Errorf("boxes = %+v", got)
			}
		})
	}
}

func TestInjectDragInterpolates(t *testing.T) {
	c := newTestCanvas(t)
	c.InjectDrag(0, 0, 40, 80, 5)
	moves := c.injectQueue[1:4]
	want := []Vec2{{10, 20}, {20, 40}, {30, 60}}
	for i, m := range moves {
		if m.kind != injectMove || m.x != want[i].X || m.y != want[i].Y {
			t.Errorf("move %d = %+v, want %v", i, m, want[i])
		}
	}
}

func TestInjectWheelAndKeys(t *testing.T) {
	c := newTestCanvas(t)
	c.InjectKey(ebiten.KeySpace, true)
	c.InjectWheel(400, 300, -1)
	c.InjectKey(ebiten.KeySpace, false)

	c.Update(frame)
	if !c.PanMode() {
		t.Error("pan mode not enabled by injected key")
	}
	c.Update(frame)
	assertNear(t, "zoom", c.Viewport().Zoom(), defaultWheelZoomOut)
	c.Update(frame)
	if c.PanMode() {
		t.Error("pan mode not disabled by injected key")
	}
}

func TestInjectLeave(t *testing.T) {
	c := newTestCanvas(t)
	c.InjectPress(10, 10, MouseButtonLeft, 0)
	c.InjectMove(100, 100)
	c.InjectLeave()
	for c.HasInjectedInput() {
		c.Update(frame)
	}
	if c.State() != StateIdle || c.Hovering() {
		t.Errorf("state=%v hovering=%v", c.State(), c.Hovering())
	}
}

func TestInjectIgnoredAfterClose(t *testing.T) {
	c := newTestCanvas(t)
	c.Close()
	c.InjectClick(10, 10, 0)
	if c.HasInjectedInput() {
		t.Error("closed canvas queued input")
	}
}
