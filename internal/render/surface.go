package render

import (
	"image/color"
	"math"
	"strconv"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/decompviz/server/pkg/colormap"
)

var (
	fontOnce   sync.Once
	fontParsed *opentype.Font
)

// fontFace returns a Go Regular face at the given point size. The
// font is embedded, so parse failures are programming errors.
func fontFace(size float64) font.Face {
	fontOnce.Do(func() {
		f, err := opentype.Parse(goregular.TTF)
		if err != nil {
			panic(err)
		}
		fontParsed = f
	})
	face, err := opentype.NewFace(fontParsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		panic(err)
	}
	return face
}

// rect is a pixel-space region of the drawing surface.
type rect struct {
	x, y, w, h float64
}

func (r rect) inset(left, bottom, top, right float64) rect {
	return rect{
		x: r.x + left,
		y: r.y + top,
		w: r.w - left - right,
		h: r.h - top - bottom,
	}
}

// axes maps a data-coordinate window onto a pixel region and draws the
// usual chart furniture: spines, ticks, labels.
type axes struct {
	dc                     *gg.Context
	plot                   rect
	xmin, xmax, ymin, ymax float64
}

func newAxes(dc *gg.Context, region rect, xmin, xmax, ymin, ymax float64) *axes {
	if xmax == xmin {
		xmin, xmax = xmin-1, xmax+1
	}
	if ymax == ymin {
		ymin, ymax = ymin-1, ymax+1
	}
	return &axes{
		dc:   dc,
		plot: region.inset(70, 50, 30, 15),
		xmin: xmin, xmax: xmax,
		ymin: ymin, ymax: ymax,
	}
}

// px converts a data x-coordinate to pixels.
func (a *axes) px(x float64) float64 {
	return a.plot.x + (x-a.xmin)/(a.xmax-a.xmin)*a.plot.w
}

// py converts a data y-coordinate to pixels (y grows upward in data
// space, downward on the canvas).
func (a *axes) py(y float64) float64 {
	return a.plot.y + a.plot.h - (y-a.ymin)/(a.ymax-a.ymin)*a.plot.h
}

var (
	spineColor = color.RGBA{60, 60, 60, 255}
	tickColor  = color.RGBA{90, 90, 90, 255}
	textColor  = color.RGBA{30, 30, 30, 255}
)

// spines draws the left and bottom axis lines only, matching the
// despined look of the original figures.
func (a *axes) spines() {
	a.dc.SetColor(spineColor)
	a.dc.SetLineWidth(1)
	a.dc.DrawLine(a.plot.x, a.plot.y, a.plot.x, a.plot.y+a.plot.h)
	a.dc.DrawLine(a.plot.x, a.plot.y+a.plot.h, a.plot.x+a.plot.w, a.plot.y+a.plot.h)
	a.dc.Stroke()
}

// xticks draws numeric ticks along the bottom spine.
func (a *axes) xticks(rotate bool) {
	a.dc.SetFontFace(fontFace(10))
	for _, t := range niceTicks(a.xmin, a.xmax, 5) {
		x := a.px(t)
		a.dc.SetColor(tickColor)
		a.dc.SetLineWidth(1)
		a.dc.DrawLine(x, a.plot.y+a.plot.h, x, a.plot.y+a.plot.h+4)
		a.dc.Stroke()
		a.dc.SetColor(textColor)
		label := formatTick(t)
		if rotate {
			a.dc.Push()
			a.dc.RotateAbout(-math.Pi/2, x, a.plot.y+a.plot.h+8)
			a.dc.DrawStringAnchored(label, x, a.plot.y+a.plot.h+8, 1, 0.4)
			a.dc.Pop()
		} else {
			a.dc.DrawStringAnchored(label, x, a.plot.y+a.plot.h+14, 0.5, 0.5)
		}
	}
}

// yticks draws numeric ticks along the left spine.
func (a *axes) yticks() {
	a.dc.SetFontFace(fontFace(10))
	for _, t := range niceTicks(a.ymin, a.ymax, 5) {
		y := a.py(t)
		a.dc.SetColor(tickColor)
		a.dc.SetLineWidth(1)
		a.dc.DrawLine(a.plot.x-4, y, a.plot.x, y)
		a.dc.Stroke()
		a.dc.SetColor(textColor)
		a.dc.DrawStringAnchored(formatTick(t), a.plot.x-7, y, 1, 0.35)
	}
}

// xlabel draws the x-axis caption.
func (a *axes) xlabel(s string) {
	a.dc.SetFontFace(fontFace(12))
	a.dc.SetColor(textColor)
	a.dc.DrawStringAnchored(s, a.plot.x+a.plot.w/2, a.plot.y+a.plot.h+36, 0.5, 0.5)
}

// ylabel draws the rotated y-axis caption.
func (a *axes) ylabel(s string) {
	a.dc.SetFontFace(fontFace(12))
	a.dc.SetColor(textColor)
	cx := a.plot.x - 52
	cy := a.plot.y + a.plot.h/2
	a.dc.Push()
	a.dc.RotateAbout(-math.Pi/2, cx, cy)
	a.dc.DrawStringAnchored(s, cx, cy, 0.5, 0.5)
	a.dc.Pop()
}

// title draws the panel title above the plot area.
func (a *axes) title(s string) {
	a.dc.SetFontFace(fontFace(13))
	a.dc.SetColor(textColor)
	a.dc.DrawStringAnchored(s, a.plot.x+a.plot.w/2, a.plot.y-14, 0.5, 0.5)
}

// marker draws one scatter marker centered at pixel (cx, cy).
func (a *axes) marker(m colormap.Marker, cx, cy, size float64, fill color.Color, edge color.Color, edgeWidth float64) {
	dc := a.dc
	r := size / 2
	switch m {
	case colormap.MarkerSquare:
		dc.DrawRectangle(cx-r, cy-r, size, size)
	case colormap.MarkerTriangleUp:
		dc.MoveTo(cx, cy-r)
		dc.LineTo(cx-r, cy+r)
		dc.LineTo(cx+r, cy+r)
		dc.ClosePath()
	case colormap.MarkerTriangleDown:
		dc.MoveTo(cx, cy+r)
		dc.LineTo(cx-r, cy-r)
		dc.LineTo(cx+r, cy-r)
		dc.ClosePath()
	case colormap.MarkerDiamond:
		dc.MoveTo(cx, cy-r)
		dc.LineTo(cx+r, cy)
		dc.LineTo(cx, cy+r)
		dc.LineTo(cx-r, cy)
		dc.ClosePath()
	case colormap.MarkerStar:
		outer, inner := r, r*0.45
		for i := 0; i < 10; i++ {
			rad := outer
			if i%2 == 1 {
				rad = inner
			}
			ang := -math.Pi/2 + float64(i)*math.Pi/5
			x := cx + rad*math.Cos(ang)
			y := cy + rad*math.Sin(ang)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.ClosePath()
	case colormap.MarkerHexagon:
		for i := 0; i < 6; i++ {
			ang := -math.Pi/2 + float64(i)*math.Pi/3
			x := cx + r*math.Cos(ang)
			y := cy + r*math.Sin(ang)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.ClosePath()
	default: // circle
		dc.DrawCircle(cx, cy, r)
	}

	dc.SetColor(fill)
	if edgeWidth > 0 {
		dc.FillPreserve()
		dc.SetColor(edge)
		dc.SetLineWidth(edgeWidth)
		dc.Stroke()
	} else {
		dc.Fill()
	}
}

// niceTicks returns round tick positions covering [min, max].
func niceTicks(min, max float64, n int) []float64 {
	if n < 2 {
		n = 2
	}
	span := max - min
	if span <= 0 || math.IsNaN(span) || math.IsInf(span, 0) {
		return []float64{min}
	}
	raw := span / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	var step float64
	switch norm := raw / mag; {
	case norm < 1.5:
		step = mag
	case norm < 3:
		step = 2 * mag
	case norm < 7:
		step = 5 * mag
	default:
		step = 10 * mag
	}
	start := math.Ceil(min/step) * step
	var ticks []float64
	for t := start; t <= max+step*1e-9; t += step {
		// Snap tiny float drift to zero.
		if math.Abs(t) < step*1e-9 {
			t = 0
		}
		ticks = append(ticks, t)
	}
	return ticks
}

func formatTick(t float64) string {
	if t == math.Trunc(t) && math.Abs(t) < 1e6 {
		return strconv.FormatFloat(t, 'f', 0, 64)
	}
	return strconv.FormatFloat(t, 'g', 3, 64)
}
