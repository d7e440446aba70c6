package annotator

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"unicode/utf16"
)

var labelPalette = [...]string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FFEAA7",
	"#DDA0DD", "#98D8C8", "#F7DC6F", "#BB8FCE", "#85C1E9",
	"#F8C471", "#82E0AA", "#F1948A", "#85C1E9", "#D2B4DE",
	"#AED6F1", "#A9DFBF", "#F9E79F", "#FADBD8", "#D5DBDB",
}

// LabelColor is the display color assigned to a label.
type LabelColor struct {
	Color Color // for drawing

	css   string
	hsl   bool
	h     int // hsl only
	s, l  int
	light bool
}

// String returns the CSS form: "#RRGGBB" for palette colors, "hsl(h, s%, l%)"
// for generated ones.
func (c LabelColor) String() string { return c.css }

// IsLight reports whether dark text reads better on c.
func (c LabelColor) IsLight() bool { return c.light }

// ContrastText returns the CSS text color to use on top of c.
func (c LabelColor) ContrastText() string {
	if c.light {
		return "#333333"
	}
	return "#FFFFFF"
}

// WithAlpha returns the CSS form of c with the given opacity.
func (c LabelColor) WithAlpha(alpha float64) string {
	a := strconv.FormatFloat(alpha, 'f', -1, 64)
	if c.hsl {
		return fmt.Sprintf("hsla(%d, %d%%, %d%%, %s)", c.h, c.s, c.l, a)
	}
	r, g, b := to8(c.Color.R), to8(c.Color.G), to8(c.Color.B)
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, a)
}

func to8(v float64) int { return int(math.Round(v * 255)) }

func hexColor(css string) LabelColor {
	n, err := strconv.ParseUint(css[1:], 16, 32)
	if err != nil {
		return LabelColor{css: css, Color: ColorWhite, light: true}
	}
	r, g, b := int(n>>16&0xff), int(n>>8&0xff), int(n&0xff)
	brightness := float64(r*299+g*587+b*114) / 1000
	return LabelColor{
		Color: Color{float64(r) / 255, float64(g) / 255, float64(b) / 255, 1},
		css:   css,
		light: brightness > 155,
	}
}

// labelHash reproduces the classic 31-multiplier string hash over UTF-16
// code units with 32-bit shift wraparound.
func labelHash(s string) int64 {
	var h int64
	for _, u := range utf16.Encode([]rune(s)) {
		shifted := int64(int32(uint32(h) << 5))
		h = int64(u) + (shifted - h)
	}
	return h
}

func generatedColor(label string) LabelColor {
	abs := labelHash(label)
	if abs < 0 {
		abs = -abs
	}
	h := int(abs % 360)
	s := 65 + int(abs%25)
	l := 55 + int(abs%15)
	r, g, b := hslToRGB(float64(h), float64(s)/100, float64(l)/100)
	return LabelColor{
		Color: Color{r, g, b, 1},
		css:   fmt.Sprintf("hsl(%d, %d%%, %d%%)", h, s, l),
		hsl:   true,
		h:     h,
		s:     s,
		l:     l,
		light: l > 60,
	}
}

func hslToRGB(h, s, l float64) (r, g, b float64) {
	c := (1 - math.Abs(2*l-1)) * s
	hp := h / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))
	switch {
	case hp < 1:
		r, g, b = c, x, 0
	case hp < 2:
		r, g, b = x, c, 0
	case hp < 3:
		r, g, b = 0, c, x
	case hp < 4:
		r, g, b = 0, x, c
	case hp < 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	m := l - c/2
	return r + m, g + m, b + m
}

// LabelAssignment pairs a label with its color.
type LabelAssignment struct {
	Label string
	Color LabelColor
}

// LabelPalette assigns stable colors to labels. The first labels seen take
// the fixed palette in order; later ones get a color derived from the label
// text. A palette belongs to one session and is safe for concurrent use.
type LabelPalette struct {
	mu     sync.Mutex
	order  []string
	colors map[string]LabelColor
}

// NewLabelPalette creates an empty palette.
func NewLabelPalette() *LabelPalette {
	return &LabelPalette{colors: make(map[string]LabelColor)}
}

// Color returns the color of label, assigning one on first use.
func (p *LabelPalette) Color(label string) LabelColor {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.colors[label]; ok {
		return c
	}
	var c LabelColor
	if n := len(p.order); n < len(labelPalette) {
		c = hexColor(labelPalette[n])
	} else {
		c = generatedColor(label)
	}
	p.colors[label] = c
	p.order = append(p.order, label)
	return c
}

// ColorWithAlpha returns the CSS color of label with the given opacity.
func (p *LabelPalette) ColorWithAlpha(label string, alpha float64) string {
	return p.Color(label).WithAlpha(alpha)
}

// All returns every assignment in first-use order.
func (p *LabelPalette) All() []LabelAssignment {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]LabelAssignment, len(p.order))
	for i, l := range p.order {
		out[i] = LabelAssignment{Label: l, Color: p.colors[l]}
	}
	return out
}

// Len returns the number of assigned labels.
func (p *LabelPalette) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

// Reset forgets every assignment.
func (p *LabelPalette) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.order = nil
	p.colors = make(map[string]LabelColor)
}
