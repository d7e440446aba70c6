package annotator

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const statsRefresh = 0.5 // seconds

// statsOverlay is the corner readout of frame rate and view state. The text
// is rebuilt at most every statsRefresh seconds.
type statsOverlay struct {
	elapsed float64
	text    string
}

func (o *statsOverlay) update(dt, fps, tps float64, c *Canvas) {
	o.elapsed += dt
	if o.text != "" && o.elapsed < statsRefresh {
		return
	}
	o.elapsed = 0
	o.text = statsText(fps, tps, c)
}

func statsText(fps, tps float64, c *Canvas) string {
	return fmt.Sprintf("FPS: %.1f\nTPS: %.1f\nzoom: %.0f%%\nstate: %s\ntool: %s",
		fps, tps, c.view.Zoom()*100, c.State(), c.Tool())
}

func (o *statsOverlay) draw(dst *ebiten.Image) {
	if o.text == "" {
		return
	}
	vector.DrawFilledRect(dst, 0, 0, 130, 80, color.RGBA{0, 0, 0, 128}, false)
	ebitenutil.DebugPrint(dst, o.text)
}
