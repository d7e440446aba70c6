package annotator

import (
	"context"
	"image/color"
	"slices"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/tanema/gween/ease"
	"go.uber.org/zap"
	"golang.org/x/image/font/basicfont"
)

// RunConfig configures the window opened by Run.
type RunConfig struct {
	Title      string
	Width      int
	Height     int
	Background Color
	// ImagePath is decoded and shown before the first frame. Empty means
	// the caller sizes the viewport through the session.
	ImagePath string
	// ShowLabels draws box labels next to each box.
	ShowLabels bool
	// FitDuration is the length of the animated fit on the F key, in seconds.
	FitDuration float32
	// Committer receives the staged annotations when Enter is pressed. S
	// stages the selected box. Nil disables both keys.
	Committer Committer
	// ShowStats draws frame rate, zoom and interaction state in the corner.
	ShowStats bool
	// ScreenshotDir receives PNGs queued with Canvas.Screenshot, a script
	// "screenshot" step or F12. Defaults to "screenshots".
	ScreenshotDir string
}

var (
	colorMask         = Color{0.2, 0.6, 1, 0.6}
	colorMaskHover    = Color{1, 1, 1, 0.9}
	colorMaskSelected = Color{1, 0.8, 0.1, 0.9}
	colorDrawing      = Color{1, 1, 1, 0.9}
	colorHandle       = Color{1, 1, 1, 1}
)

// Run opens a window and drives s from Ebitengine's game loop. It blocks
// until the window closes, then closes the session.
func Run(s *Session, cfg RunConfig) error {
	if cfg.Title == "" {
		cfg.Title = "Annotator"
	}
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 800
	}
	if cfg.FitDuration <= 0 {
		cfg.FitDuration = 0.25
	}
	if cfg.ScreenshotDir == "" {
		cfg.ScreenshotDir = "screenshots"
	}
	g := &game{s: s, cfg: cfg, face: text.NewGoXFace(basicfont.Face7x13)}
	if cfg.ImagePath != "" {
		img, info, err := s.loader.Load(context.Background(), cfg.ImagePath)
		if err != nil {
			return err
		}
		g.img = ebiten.NewImageFromImage(img)
		s.canvas.view.SetImageSize(float64(info.Width), float64(info.Height))
	}
	defer s.Close()

	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(g)
}

type game struct {
	s     *Session
	cfg   RunConfig
	input ebitenInput
	img   *ebiten.Image
	face  text.Face
	stats statsOverlay

	w, h   int
	fitted bool
}

func (g *game) Update() error {
	c := g.s.canvas
	g.input.poll(c)
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		c.Screenshot("manual")
	}
	if c.State() == StateIdle && !c.PanMode() {
		switch {
		case inpututil.IsKeyJustPressed(ebiten.KeyF):
			c.view.AnimateFit(g.cfg.FitDuration, ease.OutQuad)
		case inpututil.IsKeyJustPressed(ebiten.KeyEqual):
			c.view.ZoomIn()
		case inpututil.IsKeyJustPressed(ebiten.KeyMinus):
			c.view.ZoomOut()
		case inpututil.IsKeyJustPressed(ebiten.KeyDigit0):
			c.view.SetZoom(1)
		case g.cfg.Committer != nil && inpututil.IsKeyJustPressed(ebiten.KeyS):
			if b, ok := c.SelectedBox(); ok {
				if _, err := g.s.StageBBox(b.ID); err != nil {
					g.s.log.Warn("stage failed", zap.Error(err))
				}
			}
		case g.cfg.Committer != nil && inpututil.IsKeyJustPressed(ebiten.KeyEnter):
			if _, err := g.s.Commit(context.Background(), g.cfg.Committer); err != nil {
				g.s.log.Error("commit failed", zap.Error(err))
			}
		}
	}
	dt := time.Second / time.Duration(ebiten.TPS())
	g.s.Update(dt)
	if g.cfg.ShowStats {
		g.stats.update(dt.Seconds(), ebiten.ActualFPS(), ebiten.ActualTPS(), c)
	}
	return nil
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.w || outsideHeight != g.h {
		g.w, g.h = outsideWidth, outsideHeight
		g.s.canvas.view.SetBounds(Rect{Width: float64(g.w), Height: float64(g.h)}, 1)
		if !g.fitted {
			g.fitted = g.s.Fit() == nil
		}
	}
	return outsideWidth, outsideHeight
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(g.cfg.Background.toRGBA())
	c := g.s.canvas
	v := c.view

	if g.img != nil {
		var op ebiten.DrawImageOptions
		op.GeoM = viewGeoM(v.ClientMatrix())
		op.Filter = ebiten.FilterLinear
		screen.DrawImage(g.img, &op)
	}

	hover, hovering := c.HoveredMask()
	selected := c.SelectedMasks()
	for _, ann := range c.Annotations() {
		clr := colorMask
		switch {
		case slices.Contains(selected, ann.ID):
			clr = colorMaskSelected
		case hovering && ann.ID == hover:
			clr = colorMaskHover
		}
		g.strokeMask(screen, ann, clr)
	}

	sel, hasSel := c.SelectedBox()
	for _, b := range c.Boxes() {
		lc := g.s.palette.Color(b.Label)
		g.strokeImageRect(screen, b.Rect(), 2, lc.Color)
		if g.cfg.ShowLabels {
			p := v.ImageToScreen(b.X, b.Y)
			g.drawText(screen, b.Label, p.X+3, p.Y+3, lc.Color)
		}
	}
	if hasSel {
		for _, h := range HandlesFor(sel.Rect(), v.Zoom()) {
			tl := v.ImageToScreen(h.Rect.X, h.Rect.Y)
			br := v.ImageToScreen(h.Rect.Right(), h.Rect.Bottom())
			vector.DrawFilledRect(screen, float32(tl.X), float32(tl.Y), float32(br.X-tl.X), float32(br.Y-tl.Y), colorHandle.toRGBA(), false)
		}
	}
	if r, ok := c.DrawingRect(); ok {
		g.strokeImageRect(screen, r, 1, colorDrawing)
	}

	g.flushScreenshots(screen)
	if g.cfg.ShowStats {
		g.stats.draw(screen)
	}
}

func (g *game) flushScreenshots(screen *ebiten.Image) {
	labels := g.s.canvas.takeScreenshots()
	if len(labels) == 0 {
		return
	}
	b := screen.Bounds()
	pixels := make([]byte, 4*b.Dx()*b.Dy())
	screen.ReadPixels(pixels)
	paths, err := saveScreenshots(g.cfg.ScreenshotDir, labels, unpremultiply(pixels, b.Dx(), b.Dy()), time.Now())
	if err != nil {
		g.s.log.Error("screenshot failed", zap.Error(err))
	}
	for _, p := range paths {
		g.s.log.Info("screenshot saved", zap.String("path", p))
	}
}

func (g *game) strokeImageRect(dst *ebiten.Image, r Rect, width float32, clr Color) {
	v := g.s.canvas.view
	tl := v.ImageToScreen(r.X, r.Y)
	br := v.ImageToScreen(r.Right(), r.Bottom())
	vector.StrokeRect(dst, float32(tl.X), float32(tl.Y), float32(br.X-tl.X), float32(br.Y-tl.Y), width, clr.toRGBA(), true)
}

func (g *game) strokeMask(dst *ebiten.Image, ann ServerAnnotation, clr Color) {
	if !ann.Polygon.HasSegmentation {
		g.strokeImageRect(dst, ann.Bounds(), 1, clr)
		return
	}
	v := g.s.canvas.view
	rgba := clr.toRGBA()
	for _, ring := range ann.Polygon.Polygons {
		if len(ring) < 2 {
			continue
		}
		prev := ring[len(ring)-1]
		for _, pt := range ring {
			if len(pt) < 2 || len(prev) < 2 {
				prev = pt
				continue
			}
			a := v.ImageToScreen(prev[0], prev[1])
			b := v.ImageToScreen(pt[0], pt[1])
			vector.StrokeLine(dst, float32(a.X), float32(a.Y), float32(b.X), float32(b.Y), 1.5, rgba, true)
			prev = pt
		}
	}
}

func (g *game) drawText(dst *ebiten.Image, s string, x, y float64, clr Color) {
	var op text.DrawOptions
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr.toRGBA())
	text.Draw(dst, s, g.face, &op)
}

// viewGeoM converts an affine [a, b, c, d, tx, ty] matrix to an ebiten.GeoM.
func viewGeoM(m [6]float64) ebiten.GeoM {
	var geo ebiten.GeoM
	geo.SetElement(0, 0, m[0])
	geo.SetElement(1, 0, m[1])
	geo.SetElement(0, 1, m[2])
	geo.SetElement(1, 1, m[3])
	geo.SetElement(0, 2, m[4])
	geo.SetElement(1, 2, m[5])
	return geo
}

// toRGBA converts c to a premultiplied color.RGBA.
func (c Color) toRGBA() color.RGBA {
	return color.RGBA{
		R: uint8(clamp(c.R*c.A, 0, 1) * 255),
		G: uint8(clamp(c.G*c.A, 0, 1) * 255),
		B: uint8(clamp(c.B*c.A, 0, 1) * 255),
		A: uint8(clamp(c.A, 0, 1) * 255),
	}
}
