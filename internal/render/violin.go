package render

import (
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/decompviz/server/internal/decomp"
	"github.com/decompviz/server/internal/table"
)

const (
	violinCols   = 4
	violinCellW  = 320
	violinCellH  = 300
	violinHalfW  = 0.38 // half-width of a violin in slot units
	kdeGridSize  = 41
	titleTrimLen = 25
)

// Violins renders one violin subplot per combined top feature,
// laid out on a 4-column grid in display-name order. It requires the
// raw per-sample measurement table.
func (r *Renderer) Violins() ([]byte, error) {
	v := r.view
	if v.Featurewise() {
		return nil, &decomp.MissingDataError{What: "singles (featurewise views have no violins)"}
	}
	if v.Singles() == nil {
		return nil, &decomp.MissingDataError{What: "singles"}
	}

	features := v.ViolinFeatures()
	nrows := (len(features) + violinCols - 1) / violinCols
	if nrows < 1 {
		nrows = 1
	}

	dc := gg.NewContext(violinCols*violinCellW, nrows*violinCellH)
	dc.SetColor(color.White)
	dc.Clear()

	for i, f := range features {
		region := rect{
			x: float64(i%violinCols) * violinCellW,
			y: float64(i/violinCols) * violinCellH,
			w: violinCellW,
			h: violinCellH,
		}
		r.drawViolinCell(dc, region, f)
	}
	return r.encode(dc)
}

func (r *Renderer) drawViolinCell(dc *gg.Context, region rect, feature string) {
	v := r.view
	col, ok := v.Singles().Column(feature)
	if !ok {
		// No measurements for this feature; the cell stays hidden.
		return
	}

	order := v.DisplayOrder()
	slot := make(map[string]int, len(order))
	samplesOf := make(map[string][]string, len(order))
	for i, label := range order {
		slot[label] = i
	}
	for _, g := range v.Groups() {
		samplesOf[g.Label] = g.Samples
	}

	splicing := v.DataType() == decomp.DataTypeSplicing

	groupVals := make([][]float64, len(order))
	var all []float64
	for i, label := range order {
		for _, s := range samplesOf[label] {
			val, ok := col.At(s)
			if !ok {
				continue
			}
			if splicing {
				val = clamp(val, 0, 1)
			}
			groupVals[i] = append(groupVals[i], val)
			all = append(all, val)
		}
	}
	if len(all) == 0 {
		return
	}

	ymin, ymax := all[0], all[0]
	for _, val := range all {
		ymin = math.Min(ymin, val)
		ymax = math.Max(ymax, val)
	}
	if splicing {
		ymin, ymax = 0, 1
	} else {
		pad := (ymax - ymin) * 0.1
		if pad == 0 {
			pad = 0.5
		}
		ymin -= pad
		ymax += pad
	}

	a := newAxes(dc, region, -0.5, float64(len(order))-0.5, ymin, ymax)
	a.spines()
	a.yticks()
	switch v.DataType() {
	case decomp.DataTypeSplicing:
		a.ylabel("Ψ")
	case decomp.DataTypeExpression:
		a.ylabel("Expression")
	}

	dc.SetFontFace(fontFace(10))
	for i, label := range order {
		x := a.px(float64(i))
		dc.SetColor(tickColor)
		dc.SetLineWidth(1)
		dc.DrawLine(x, a.plot.y+a.plot.h, x, a.plot.y+a.plot.h+4)
		dc.Stroke()
		dc.SetColor(textColor)
		dc.DrawStringAnchored(label, x, a.plot.y+a.plot.h+14, 0.5, 0.5)
	}

	r.drawViolinTitle(dc, a, feature)

	colors := v.ColorOrder()
	for i := range order {
		if len(groupVals[i]) > 0 {
			r.drawViolin(dc, a, float64(i), groupVals[i], colors[i])
		}
	}

	lightGrey := color.RGBA{180, 180, 180, 200}
	r.drawOverlayDots(dc, a, v.Pooled(), feature, slot, splicing, color.RGBA{0, 0, 0, 255})
	r.drawOverlayDots(dc, a, v.Outliers(), feature, slot, splicing, lightGrey)
}

// drawViolinTitle prints the (possibly truncated) feature ID, with
// the renamed display name on a second line when it differs.
func (r *Renderer) drawViolinTitle(dc *gg.Context, a *axes, feature string) {
	v := r.view
	renamed := v.DisplayName(feature)
	id := feature
	if len(id) > titleTrimLen {
		id = id[:titleTrimLen] + "..."
	}
	dc.SetFontFace(fontFace(11))
	dc.SetColor(textColor)
	cx := a.plot.x + a.plot.w/2
	if renamed != id && renamed != feature {
		dc.DrawStringAnchored(id, cx, a.plot.y-20, 0.5, 0.5)
		dc.DrawStringAnchored(renamed, cx, a.plot.y-8, 0.5, 0.5)
	} else {
		dc.DrawStringAnchored(id, cx, a.plot.y-14, 0.5, 0.5)
	}
}

// drawViolin draws the density outline of one group's distribution at
// the given slot, with a quartile bar and median dot inside.
func (r *Renderer) drawViolin(dc *gg.Context, a *axes, slot float64, vals []float64, c color.RGBA) {
	vmin, vmax := vals[0], vals[0]
	for _, v := range vals {
		vmin = math.Min(vmin, v)
		vmax = math.Max(vmax, v)
	}

	sd := stat.StdDev(vals, nil)
	if len(vals) >= 2 && sd > 0 {
		bw := silvermanBandwidth(vals, sd)
		lo := math.Max(vmin-2*bw, a.ymin)
		hi := math.Min(vmax+2*bw, a.ymax)
		grid := make([]float64, kdeGridSize)
		for i := range grid {
			grid[i] = lo + (hi-lo)*float64(i)/float64(kdeGridSize-1)
		}
		density := gaussianKDE(vals, bw, grid)
		dmax := 0.0
		for _, d := range density {
			dmax = math.Max(dmax, d)
		}
		if dmax > 0 {
			fill := c
			fill.A = 210
			for pass := 0; pass < 2; pass++ {
				dc.MoveTo(a.px(slot), a.py(grid[0]))
				for i, g := range grid {
					half := violinHalfW * density[i] / dmax
					dc.LineTo(a.px(slot+half), a.py(g))
				}
				for i := len(grid) - 1; i >= 0; i-- {
					half := violinHalfW * density[i] / dmax
					dc.LineTo(a.px(slot-half), a.py(grid[i]))
				}
				dc.ClosePath()
				if pass == 0 {
					dc.SetColor(fill)
					dc.Fill()
				} else {
					dc.SetColor(darken(c))
					dc.SetLineWidth(1)
					dc.Stroke()
				}
			}
		}
	} else {
		// Too few points for a density; show them directly.
		for _, v := range vals {
			dc.SetColor(c)
			dc.DrawCircle(a.px(slot), a.py(v), 3)
			dc.Fill()
		}
	}

	if q, err := stats.Quartile(stats.Float64Data(vals)); err == nil {
		dc.SetColor(color.RGBA{40, 40, 40, 255})
		dc.SetLineWidth(3)
		dc.DrawLine(a.px(slot), a.py(q.Q1), a.px(slot), a.py(q.Q3))
		dc.Stroke()
	}
	if med, err := stats.Median(stats.Float64Data(vals)); err == nil {
		dc.SetColor(color.White)
		dc.DrawCircle(a.px(slot), a.py(med), 2.5)
		dc.Fill()
	}
}

// drawOverlayDots marks pooled or outlier measurements on top of the
// group violins. Overlay samples outside every displayed group are
// skipped.
func (r *Renderer) drawOverlayDots(dc *gg.Context, a *axes, overlay *table.Frame, feature string, slot map[string]int, splicing bool, c color.RGBA) {
	if overlay == nil {
		return
	}
	col, ok := overlay.Column(feature)
	if !ok {
		return
	}
	for _, sample := range overlay.RowKeys() {
		val, ok := col.At(sample)
		if !ok {
			continue
		}
		i, ok := slot[r.view.GroupOf(sample)]
		if !ok {
			continue
		}
		if splicing {
			val = clamp(val, 0, 1)
		}
		dc.SetColor(c)
		dc.DrawCircle(a.px(float64(i)), a.py(val), 4)
		dc.Fill()
	}
}

func silvermanBandwidth(vals []float64, sd float64) float64 {
	bw := 1.06 * sd * math.Pow(float64(len(vals)), -1.0/5.0)
	if bw <= 0 || math.IsNaN(bw) {
		bw = 1e-3
	}
	return bw
}

func gaussianKDE(vals []float64, bw float64, grid []float64) []float64 {
	n := float64(len(vals))
	norm := n * bw * math.Sqrt(2*math.Pi)
	out := make([]float64, len(grid))
	for i, g := range grid {
		sum := 0.0
		for _, v := range vals {
			z := (g - v) / bw
			sum += math.Exp(-0.5 * z * z)
		}
		out[i] = sum / norm
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func darken(c color.RGBA) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * 0.6),
		G: uint8(float64(c.G) * 0.6),
		B: uint8(float64(c.B) * 0.6),
		A: 255,
	}
}
