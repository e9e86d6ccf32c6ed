// Package render draws decomposition figures using fogleman/gg.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"math"
	"sync"

	"github.com/fogleman/gg"

	"github.com/decompviz/server/internal/decomp"
	"github.com/decompviz/server/pkg/colormap"
)

// Config contains renderer configuration.
type Config struct {
	// Width and Height size single-panel figures in pixels.
	Width  int
	Height int
	// MarkerSize is the default scatter marker diameter.
	MarkerSize float64
}

// Renderer turns a derived decomposition view into PNG figures. All
// methods are read-only over the view and safe to call repeatedly.
type Renderer struct {
	view       *decomp.View
	cfg        Config
	bufferPool sync.Pool
}

// New creates a renderer over a view.
func New(view *decomp.View, cfg Config) *Renderer {
	if cfg.Width <= 0 {
		cfg.Width = 900
	}
	if cfg.Height <= 0 {
		cfg.Height = 600
	}
	if cfg.MarkerSize <= 0 {
		cfg.MarkerSize = 10
	}
	return &Renderer{
		view: view,
		cfg:  cfg,
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 64*1024))
			},
		},
	}
}

// View returns the underlying derived view.
func (r *Renderer) View() *decomp.View { return r.view }

// SampleOptions are the per-call toggles for the sample scatter.
type SampleOptions struct {
	Title            string
	ShowPointLabels  bool
	ShowVectors      bool
	ShowVectorLabels bool
	Legend           bool
	MarkerSize       float64
}

// DefaultSampleOptions mirrors the construction-time defaults:
// vectors and legend on, point labels off.
func DefaultSampleOptions() SampleOptions {
	return SampleOptions{
		ShowVectors:      true,
		ShowVectorLabels: true,
		Legend:           true,
	}
}

// Samples renders the sample scatter with optional loading vectors.
func (r *Renderer) Samples(opts SampleOptions) ([]byte, error) {
	dc := gg.NewContext(r.cfg.Width, r.cfg.Height)
	dc.SetColor(color.White)
	dc.Clear()
	r.drawSamples(dc, rect{0, 0, float64(r.cfg.Width), float64(r.cfg.Height)}, opts)
	return r.encode(dc)
}

// Loadings renders the per-component loading plot for one of the two
// displayed dimensions.
func (r *Renderer) Loadings(pc string) ([]byte, error) {
	if _, ok := r.view.ComponentTop(pc); !ok {
		return nil, &decomp.ConfigurationError{Msg: fmt.Sprintf("dimension %q is not displayed", pc)}
	}
	dc := gg.NewContext(r.cfg.Width, r.cfg.Height)
	dc.SetColor(color.White)
	dc.Clear()
	r.drawLoadings(dc, rect{0, 0, float64(r.cfg.Width), float64(r.cfg.Height)}, pc)
	return r.encode(dc)
}

// ExplainedVariance renders the full explained-variance sequence as a
// line plot against 1-based component index.
func (r *Renderer) ExplainedVariance(title string) ([]byte, error) {
	if r.view.Explained() == nil {
		return nil, &decomp.MissingDataError{What: "explained variance"}
	}
	dc := gg.NewContext(r.cfg.Width, r.cfg.Height)
	dc.SetColor(color.White)
	dc.Clear()
	r.drawVariance(dc, rect{0, 0, float64(r.cfg.Width), float64(r.cfg.Height)}, title)
	return r.encode(dc)
}

// Figure renders the composite view: the scatter on the left and the
// two loading panels on the right.
func (r *Renderer) Figure(opts SampleOptions) ([]byte, error) {
	w := r.cfg.Width * 2
	h := r.cfg.Height
	dc := gg.NewContext(w, h)
	dc.SetColor(color.White)
	dc.Clear()

	fw := float64(w)
	fh := float64(h)
	r.drawSamples(dc, rect{0, 0, fw * 0.5, fh}, opts)
	r.drawLoadings(dc, rect{fw * 0.5, 0, fw * 0.25, fh}, r.view.XPC())
	r.drawLoadings(dc, rect{fw * 0.75, 0, fw * 0.25, fh}, r.view.YPC())
	return r.encode(dc)
}

func (r *Renderer) drawSamples(dc *gg.Context, region rect, opts SampleOptions) {
	v := r.view
	markerSize := opts.MarkerSize
	if markerSize <= 0 {
		markerSize = r.cfg.MarkerSize
	}

	// Window covers every sample and, when shown, every vector tip.
	xmin, xmax := math.Inf(1), math.Inf(-1)
	ymin, ymax := math.Inf(1), math.Inf(-1)
	grow := func(x, y float64) {
		xmin = math.Min(xmin, x)
		xmax = math.Max(xmax, x)
		ymin = math.Min(ymin, y)
		ymax = math.Max(ymax, y)
	}
	for _, s := range v.Samples() {
		x, y := v.SamplePosition(s)
		grow(x, y)
	}
	if opts.ShowVectors {
		grow(0, 0)
		for _, rf := range v.TopVectors() {
			x, y := v.ScaledLoading(rf.Feature)
			grow(x, y)
		}
	}
	if math.IsInf(xmin, 1) {
		xmin, xmax, ymin, ymax = -1, 1, -1, 1
	}
	padX := (xmax - xmin) * 0.05
	padY := (ymax - ymin) * 0.05
	a := newAxes(dc, region, xmin-padX, xmax+padX, ymin-padY, ymax+padY)

	a.spines()
	a.xticks(false)
	a.yticks()
	a.xlabel(axisCaption(v.XPC(), v.ExplainedVar(v.XPC())))
	a.ylabel(axisCaption(v.YPC(), v.ExplainedVar(v.YPC())))
	if opts.Title != "" {
		a.title(opts.Title)
	}

	lightGrey := color.RGBA{211, 211, 211, 255}
	for _, g := range v.Groups() {
		fill := v.Color(g.Label)
		fill.A = 191 // matches the 0.75 alpha of the original scatter
		marker := v.Marker(g.Label)
		for _, s := range g.Samples {
			x, y := v.SamplePosition(s)
			cx, cy := a.px(x), a.py(y)
			switch {
			case v.IsPooled(s):
				a.marker(marker, cx, cy, markerSize, fill, color.Black, 2)
			case v.IsOutlier(s):
				a.marker(marker, cx, cy, markerSize, fill, lightGrey, 3)
			default:
				a.marker(marker, cx, cy, markerSize, fill, color.Black, 0.3)
			}
			if opts.ShowPointLabels {
				dc.SetFontFace(fontFace(9))
				dc.SetColor(textColor)
				dc.DrawStringAnchored(s, cx+markerSize/2+2, cy, 0, 0.4)
			}
		}
	}

	if opts.ShowVectors {
		ox, oy := a.px(0), a.py(0)
		for _, rf := range v.TopVectors() {
			x, y := v.ScaledLoading(rf.Feature)
			tx, ty := a.px(x), a.py(y)
			dc.SetColor(color.Black)
			dc.SetLineWidth(1)
			dc.DrawLine(ox, oy, tx, ty)
			dc.Stroke()
			if opts.ShowVectorLabels {
				// Nudge the label away from the origin on the side
				// matching the vector's sign.
				lx := tx + math.Copysign(5, x)
				ly := ty - math.Copysign(5, y)
				align := 1.0
				if x > 0 {
					align = 0
				}
				dc.SetFontFace(fontFace(10))
				dc.SetColor(textColor)
				dc.DrawStringAnchored(v.DisplayName(rf.Feature), lx, ly, align, 0.5)
			}
		}
	}

	if opts.Legend {
		r.drawLegend(dc, a, markerSize)
	}
}

func (r *Renderer) drawLegend(dc *gg.Context, a *axes, markerSize float64) {
	v := r.view
	dc.SetFontFace(fontFace(11))

	entryH := 18.0
	maxW := 0.0
	for _, g := range v.Groups() {
		w, _ := dc.MeasureString(g.Label)
		maxW = math.Max(maxW, w)
	}
	boxW := maxW + 34
	boxH := entryH*float64(len(v.Groups())) + 10
	bx := a.plot.x + a.plot.w - boxW - 8
	by := a.plot.y + 8

	dc.SetRGBA(1, 1, 1, 0.85)
	dc.DrawRectangle(bx, by, boxW, boxH)
	dc.Fill()
	dc.SetColor(spineColor)
	dc.SetLineWidth(0.8)
	dc.DrawRectangle(bx, by, boxW, boxH)
	dc.Stroke()

	for i, g := range v.Groups() {
		cy := by + 5 + entryH*float64(i) + entryH/2
		a.marker(v.Marker(g.Label), bx+14, cy, math.Min(markerSize, 10), v.Color(g.Label), color.Black, 0.3)
		dc.SetColor(textColor)
		dc.DrawStringAnchored(g.Label, bx+26, cy, 0, 0.35)
	}
}

func (r *Renderer) drawLoadings(dc *gg.Context, region rect, pc string) {
	v := r.view
	top, _ := v.ComponentTop(pc)
	n := len(top.Labels)
	if n == 0 {
		return
	}

	lmin, lmax := top.Loadings[0], top.Loadings[0]
	for _, l := range top.Loadings {
		lmin = math.Min(lmin, l)
		lmax = math.Max(lmax, l)
	}
	pad := math.Max(math.Abs(lmax), math.Abs(lmin)) * 0.05
	if pad == 0 {
		pad = 0.5
	}

	a := newAxes(dc, region, lmin-pad, lmax+pad, -0.5, float64(n-1)+0.5)
	a.spines()
	a.xticks(true)
	a.title("Component " + pc)

	// Feature names stand in for numeric y ticks.
	dc.SetFontFace(fontFace(9))
	for i, label := range top.Labels {
		y := a.py(float64(i))
		dc.SetColor(tickColor)
		dc.SetLineWidth(1)
		dc.DrawLine(a.plot.x-4, y, a.plot.x, y)
		dc.Stroke()
		dc.SetColor(textColor)
		name := v.Shorten(v.DisplayName(label))
		dc.DrawStringAnchored(name, a.plot.x-7, y, 1, 0.35)
	}

	for i, l := range top.Loadings {
		dc.SetColor(colormap.Deep[0])
		dc.DrawCircle(a.px(l), a.py(float64(i)), 3.5)
		dc.Fill()
	}
}

func (r *Renderer) drawVariance(dc *gg.Context, region rect, title string) {
	v := r.view
	values := v.Explained().Values()
	n := len(values)
	if n == 0 {
		return
	}

	vmin, vmax := values[0], values[0]
	for _, val := range values {
		vmin = math.Min(vmin, val)
		vmax = math.Max(vmax, val)
	}
	pad := (vmax - vmin) * 0.05
	if pad == 0 {
		pad = 0.05
	}

	a := newAxes(dc, region, 0.5, float64(n)+0.5, vmin-pad, vmax+pad)
	a.spines()
	a.yticks()
	a.xlabel("Principal component")
	a.ylabel("Fraction explained variance")
	if title != "" {
		a.title(title)
	}

	// Component-index ticks are 1-based.
	dc.SetFontFace(fontFace(10))
	for i := 1; i <= n; i++ {
		x := a.px(float64(i))
		dc.SetColor(tickColor)
		dc.SetLineWidth(1)
		dc.DrawLine(x, a.plot.y+a.plot.h, x, a.plot.y+a.plot.h+4)
		dc.Stroke()
		dc.SetColor(textColor)
		dc.DrawStringAnchored(fmt.Sprintf("%d", i), x, a.plot.y+a.plot.h+14, 0.5, 0.5)
	}

	dc.SetColor(colormap.Deep[0])
	dc.SetLineWidth(1.5)
	for i := 1; i < n; i++ {
		dc.DrawLine(a.px(float64(i)), a.py(values[i-1]), a.px(float64(i+1)), a.py(values[i]))
	}
	dc.Stroke()
	for i, val := range values {
		dc.DrawCircle(a.px(float64(i+1)), a.py(val), 4)
		dc.Fill()
	}
}

func axisCaption(pc string, explained float64) string {
	return fmt.Sprintf("Principal Component %s (Explains %.2f%% Of Variance)", pc, 100*explained)
}

func (r *Renderer) encode(dc *gg.Context) ([]byte, error) {
	buf := r.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		r.bufferPool.Put(buf)
	}()

	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(buf, dc.Image()); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
