package annotator

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

var keyNames = map[string]ebiten.Key{
	"Space":     ebiten.KeySpace,
	"Shift":     ebiten.KeyShift,
	"Control":   ebiten.KeyControl,
	"Alt":       ebiten.KeyAlt,
	"Meta":      ebiten.KeyMeta,
	"Tab":       ebiten.KeyTab,
	"Enter":     ebiten.KeyEnter,
	"Escape":    ebiten.KeyEscape,
	"Backspace": ebiten.KeyBackspace,
	"Delete":    ebiten.KeyDelete,
	"H":         ebiten.KeyH,
	"P":         ebiten.KeyP,
	"F":         ebiten.KeyF,
	"B":         ebiten.KeyB,
	"S":         ebiten.KeyS,
	"L":         ebiten.KeyL,
	"Equal":     ebiten.KeyEqual,
	"Minus":     ebiten.KeyMinus,
	"Digit0":    ebiten.KeyDigit0,
}

// parseKey resolves a key name used in configs and scripts.
func parseKey(name string) (ebiten.Key, bool) {
	k, ok := keyNames[name]
	return k, ok
}

// readModifiers reads the current keyboard modifier state.
func readModifiers() KeyModifiers {
	var mods KeyModifiers
	if ebiten.IsKeyPressed(ebiten.KeyShift) || ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight) {
		mods |= ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight) {
		mods |= ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) || ebiten.IsKeyPressed(ebiten.KeyAltLeft) || ebiten.IsKeyPressed(ebiten.KeyAltRight) {
		mods |= ModAlt
	}
	if ebiten.IsKeyPressed(ebiten.KeyMeta) || ebiten.IsKeyPressed(ebiten.KeyMetaLeft) || ebiten.IsKeyPressed(ebiten.KeyMetaRight) {
		mods |= ModMeta
	}
	return mods
}

var pollButtons = [...]struct {
	eb  ebiten.MouseButton
	btn MouseButton
}{
	{ebiten.MouseButtonLeft, MouseButtonLeft},
	{ebiten.MouseButtonRight, MouseButtonRight},
	{ebiten.MouseButtonMiddle, MouseButtonMiddle},
}

// ebitenInput feeds real mouse and keyboard state into a Canvas once per
// frame. The window is the canvas element, so client and canvas coordinates
// coincide up to the device scale.
type ebitenInput struct {
	inside  bool
	lastX   int
	lastY   int
	pressed bool
}

// poll reads this frame's input and dispatches it. Real input is skipped
// while synthetic events are queued.
func (in *ebitenInput) poll(c *Canvas) {
	if c.HasInjectedInput() {
		return
	}
	mods := readModifiers()
	w, h := c.view.Bounds().Width, c.view.Bounds().Height

	mx, my := ebiten.CursorPosition()
	x, y := float64(mx), float64(my)
	inside := x >= 0 && y >= 0 && (w == 0 || x < w) && (h == 0 || y < h)

	if in.inside && !inside && !in.pressed {
		c.PointerLeave()
	}
	in.inside = inside

	for _, b := range pollButtons {
		if inpututil.IsMouseButtonJustPressed(b.eb) && inside && !in.pressed {
			in.pressed = true
			c.PointerDown(x, y, b.btn, mods)
		}
	}
	if mx != in.lastX || my != in.lastY {
		in.lastX, in.lastY = mx, my
		if inside || in.pressed {
			c.PointerMove(x, y)
		}
	}
	for _, b := range pollButtons {
		if inpututil.IsMouseButtonJustReleased(b.eb) && in.pressed {
			in.pressed = false
			c.PointerUp(x, y, b.btn, mods)
		}
	}

	if _, dy := ebiten.Wheel(); dy != 0 && inside {
		c.Wheel(x, y, dy)
	}

	if inpututil.IsKeyJustPressed(c.panKey) {
		c.KeyDown(c.panKey)
	}
	if inpututil.IsKeyJustReleased(c.panKey) {
		c.KeyUp(c.panKey)
	}
}
