package annotator

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Zoom limits and step sizes used when a ViewportConfig leaves them unset.
const (
	MinZoom  = 0.1
	MaxZoom  = 10.0
	ZoomStep = 0.1

	defaultWheelZoomIn  = 1.1
	defaultWheelZoomOut = 0.9
	defaultPadding      = 32.0
)

// viewAnim holds the active tweens of an animated zoom/pan transition.
type viewAnim struct {
	zoom, x, y          *gween.Tween
	doneZ, doneX, doneY bool
}

// Viewport maps between canvas pixels ("screen") and image pixels.
//
//	screen = image*zoom + pan
//
// Zoom is kept within [MinZoom, MaxZoom]. All mutation goes through methods so
// the cached view matrix stays in sync.
type Viewport struct {
	zoom float64
	pan  Vec2

	minZoom, maxZoom float64
	zoomStep         float64
	wheelIn          float64
	wheelOut         float64
	padding          float64

	// Bounds is the canvas element rectangle in client coordinates. Width and
	// Height double as the container size used by FitToContainer.
	bounds Rect
	// pixelRatio is canvas backing-store pixels per client pixel.
	pixelRatio float64

	imageW, imageH float64

	viewMatrix    [6]float64
	invViewMatrix [6]float64
	dirty         bool

	anim *viewAnim
}

// NewViewport creates a viewport at zoom 1 with no pan. A zero-valued config
// field falls back to the package default.
func NewViewport(cfg ViewportConfig) *Viewport {
	v := &Viewport{
		zoom:       1,
		minZoom:    orDefault(cfg.MinZoom, MinZoom),
		maxZoom:    orDefault(cfg.MaxZoom, MaxZoom),
		zoomStep:   orDefault(cfg.ZoomStep, ZoomStep),
		wheelIn:    orDefault(cfg.WheelZoomIn, defaultWheelZoomIn),
		wheelOut:   orDefault(cfg.WheelZoomOut, defaultWheelZoomOut),
		padding:    cfg.Padding,
		pixelRatio: 1,
		dirty:      true,
	}
	if v.minZoom > v.maxZoom {
		v.minZoom, v.maxZoom = v.maxZoom, v.minZoom
	}
	return v
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// Zoom returns the current scale factor.
func (v *Viewport) Zoom() float64 { return v.zoom }

// Pan returns the current pan offset in canvas pixels.
func (v *Viewport) Pan() Vec2 { return v.pan }

// ZoomLimits returns the configured minimum and maximum zoom.
func (v *Viewport) ZoomLimits() (lo, hi float64) { return v.minZoom, v.maxZoom }

// ImageSize returns the natural image size, zero until SetImageSize is called.
func (v *Viewport) ImageSize() (w, h float64) { return v.imageW, v.imageH }

// Bounds returns the canvas element rectangle in client coordinates.
func (v *Viewport) Bounds() Rect { return v.bounds }

// SetImageSize records the natural size of the displayed image.
func (v *Viewport) SetImageSize(w, h float64) {
	v.imageW = w
	v.imageH = h
}

// SetBounds records where the canvas element sits in client coordinates and
// its size. pixelRatio <= 0 is treated as 1.
func (v *Viewport) SetBounds(bounds Rect, pixelRatio float64) {
	v.bounds = bounds
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	v.pixelRatio = pixelRatio
}

// hasLayout reports whether image and container metrics are known.
func (v *Viewport) hasLayout() bool {
	return v.imageW > 0 && v.imageH > 0 && v.bounds.Width > 0 && v.bounds.Height > 0
}

// set applies zoom and pan without touching a running animation.
func (v *Viewport) set(zoom float64, pan Vec2) {
	zoom = clamp(zoom, v.minZoom, v.maxZoom)
	if zoom != v.zoom || pan != v.pan {
		v.zoom = zoom
		v.pan = pan
		v.dirty = true
	}
}

// SetZoom sets the zoom, clamped to the limits, keeping the pan offset.
func (v *Viewport) SetZoom(z float64) {
	v.anim = nil
	v.set(z, v.pan)
}

// SetPan sets the pan offset.
func (v *Viewport) SetPan(p Vec2) {
	v.anim = nil
	v.set(v.zoom, p)
}

// PanBy shifts the pan offset by (dx, dy) canvas pixels.
func (v *Viewport) PanBy(dx, dy float64) {
	v.SetPan(Vec2{v.pan.X + dx, v.pan.Y + dy})
}

// ZoomIn adds one zoom step.
func (v *Viewport) ZoomIn() { v.SetZoom(v.zoom + v.zoomStep) }

// ZoomOut removes one zoom step.
func (v *Viewport) ZoomOut() { v.SetZoom(v.zoom - v.zoomStep) }

// ZoomToPoint zooms by the wheel factor while keeping the image point under
// (sx, sy) fixed on screen. A positive delta zooms in. Returns false when the
// zoom did not change.
func (v *Viewport) ZoomToPoint(sx, sy, wheelDelta float64) bool {
	if wheelDelta == 0 {
		return false
	}
	factor := v.wheelOut
	if wheelDelta > 0 {
		factor = v.wheelIn
	}
	newZoom := clamp(v.zoom*factor, v.minZoom, v.maxZoom)
	if newZoom == v.zoom {
		return false
	}

	// Image point under the cursor before the change; deliberately unclamped
	// so the anchor holds even when the cursor is off the image.
	ix := (sx - v.pan.X) / v.zoom
	iy := (sy - v.pan.Y) / v.zoom

	v.anim = nil
	v.set(newZoom, Vec2{sx - ix*newZoom, sy - iy*newZoom})
	return true
}

// fitTarget computes the zoom and centring pan for fit (fill=false) or fill.
func (v *Viewport) fitTarget(fill bool) (float64, Vec2, bool) {
	if !v.hasLayout() {
		return 0, Vec2{}, false
	}
	cw := v.bounds.Width * v.pixelRatio
	ch := v.bounds.Height * v.pixelRatio
	availW := math.Max(cw-v.padding, 1)
	availH := math.Max(ch-v.padding, 1)
	scaleX := availW / v.imageW
	scaleY := availH / v.imageH

	var z float64
	if fill {
		z = math.Max(scaleX, scaleY)
	} else {
		z = math.Min(math.Min(scaleX, scaleY), 1)
	}
	z = clamp(z, v.minZoom, v.maxZoom)

	pan := Vec2{
		X: (cw - v.imageW*z) / 2,
		Y: (ch - v.imageH*z) / 2,
	}
	return z, pan, true
}

// FitToContainer shows the whole image, never scaling above 100%, centred in
// the container. No-op (returns false) until image and container sizes are known.
func (v *Viewport) FitToContainer() bool {
	z, pan, ok := v.fitTarget(false)
	if !ok {
		return false
	}
	v.anim = nil
	v.set(z, pan)
	return true
}

// ZoomToFill scales the image so it covers the container, centred.
func (v *Viewport) ZoomToFill() bool {
	z, pan, ok := v.fitTarget(true)
	if !ok {
		return false
	}
	v.anim = nil
	v.set(z, pan)
	return true
}

// AnimateTo tweens zoom and pan to the target over duration seconds.
func (v *Viewport) AnimateTo(zoom float64, pan Vec2, duration float32, easeFn ease.TweenFunc) {
	zoom = clamp(zoom, v.minZoom, v.maxZoom)
	if easeFn == nil {
		easeFn = ease.OutQuad
	}
	v.anim = &viewAnim{
		zoom: gween.New(float32(v.zoom), float32(zoom), duration, easeFn),
		x:    gween.New(float32(v.pan.X), float32(pan.X), duration, easeFn),
		y:    gween.New(float32(v.pan.Y), float32(pan.Y), duration, easeFn),
	}
}

// AnimateFit is the animated form of FitToContainer.
func (v *Viewport) AnimateFit(duration float32, easeFn ease.TweenFunc) bool {
	z, pan, ok := v.fitTarget(false)
	if ok {
		v.AnimateTo(z, pan, duration, easeFn)
	}
	return ok
}

// AnimateFill is the animated form of ZoomToFill.
func (v *Viewport) AnimateFill(duration float32, easeFn ease.TweenFunc) bool {
	z, pan, ok := v.fitTarget(true)
	if ok {
		v.AnimateTo(z, pan, duration, easeFn)
	}
	return ok
}

// Animating reports whether a transition is in progress.
func (v *Viewport) Animating() bool { return v.anim != nil }

// Update advances a running transition by dt seconds.
func (v *Viewport) Update(dt float32) {
	a := v.anim
	if a == nil {
		return
	}
	zoom, pan := v.zoom, v.pan
	if !a.doneZ {
		val, done := a.zoom.Update(dt)
		zoom = float64(val)
		a.doneZ = done
	}
	if !a.doneX {
		val, done := a.x.Update(dt)
		pan.X = float64(val)
		a.doneX = done
	}
	if !a.doneY {
		val, done := a.y.Update(dt)
		pan.Y = float64(val)
		a.doneY = done
	}
	v.set(zoom, pan)
	if a.doneZ && a.doneX && a.doneY {
		v.anim = nil
	}
}

// computeViewMatrix recomputes the cached view matrix if dirty.
//
// viewMatrix = Translate(pan) * Scale(zoom)
func (v *Viewport) computeViewMatrix() [6]float64 {
	if !v.dirty {
		return v.viewMatrix
	}
	v.dirty = false
	v.viewMatrix = scaleTranslate(v.zoom, v.pan.X, v.pan.Y)
	v.invViewMatrix = invertAffine(v.viewMatrix)
	return v.viewMatrix
}

// Matrix returns the image→canvas affine matrix [a, b, c, d, tx, ty].
func (v *Viewport) Matrix() [6]float64 {
	return v.computeViewMatrix()
}

// ClientMatrix returns the image→client affine matrix: the view matrix
// followed by the inverse of ClientToCanvas.
func (v *Viewport) ClientMatrix() [6]float64 {
	r := 1 / v.pixelRatio
	return multiplyAffine(scaleTranslate(r, v.bounds.X, v.bounds.Y), v.computeViewMatrix())
}

// ClientToCanvas converts client (window) coordinates to canvas pixels.
func (v *Viewport) ClientToCanvas(cx, cy float64) Vec2 {
	return Vec2{
		X: (cx - v.bounds.X) * v.pixelRatio,
		Y: (cy - v.bounds.Y) * v.pixelRatio,
	}
}

// ImageToScreen converts image coordinates to canvas pixels.
func (v *Viewport) ImageToScreen(ix, iy float64) Vec2 {
	v.computeViewMatrix()
	x, y := transformPoint(v.viewMatrix, ix, iy)
	return Vec2{x, y}
}

// ScreenToImage converts canvas pixels to image coordinates, clamping each
// axis to the image extent. Before SetImageSize the result is clamped to 0.
func (v *Viewport) ScreenToImage(sx, sy float64) Vec2 {
	v.computeViewMatrix()
	x, y := transformPoint(v.invViewMatrix, sx, sy)
	return Vec2{
		X: clamp(x, 0, v.imageW),
		Y: clamp(y, 0, v.imageH),
	}
}

// ClientToImage chains ClientToCanvas and ScreenToImage.
func (v *Viewport) ClientToImage(cx, cy float64) Vec2 {
	c := v.ClientToCanvas(cx, cy)
	return v.ScreenToImage(c.X, c.Y)
}

// VisibleImageRect returns the part of the image currently inside the
// container, in image coordinates.
func (v *Viewport) VisibleImageRect() Rect {
	tl := v.ScreenToImage(0, 0)
	br := v.ScreenToImage(v.bounds.Width*v.pixelRatio, v.bounds.Height*v.pixelRatio)
	return Rect{X: tl.X, Y: tl.Y, Width: br.X - tl.X, Height: br.Y - tl.Y}
}
