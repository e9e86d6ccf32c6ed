package render

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"sort"

	"github.com/decompviz/server/pkg/colormap"
)

// interactivePoint is one sample in the hover scatter.
type interactivePoint struct {
	X, Y    float64
	Color   string
	Tooltip string
}

type interactivePage struct {
	Title  string
	Width  int
	Height int
	Points []interactivePoint
	XLabel string
	YLabel string
}

var interactiveTmpl = template.Must(template.New("interactive").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 20px; }
circle { fill-opacity: 0.6; }
circle:hover { fill-opacity: 1; stroke: #333; }
</style>
</head>
<body>
<h2>{{.Title}}</h2>
<svg width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
{{range .Points}}<circle cx="{{printf "%.2f" .X}}" cy="{{printf "%.2f" .Y}}" r="6" fill="{{.Color}}"><title>{{.Tooltip}}</title></circle>
{{end}}<text x="{{.Width}}" y="{{.Height}}" text-anchor="end" dx="-6" dy="-6" font-size="12">{{.XLabel}}</text>
<text x="0" y="0" transform="rotate(-90)" text-anchor="end" dx="-6" dy="14" font-size="12">{{.YLabel}}</text>
</svg>
</body>
</html>
`))

// Interactive writes a browser-viewable scatter with hover tooltips.
// Tooltips carry the sample identifier plus any caller-supplied
// metadata columns (column -> sample -> value). Colors and positions
// match the static scatter.
func (r *Renderer) Interactive(w io.Writer, metadata map[string]map[string]string, title string) error {
	v := r.view

	width, height := r.cfg.Width, r.cfg.Height
	xmin, xmax := math.Inf(1), math.Inf(-1)
	ymin, ymax := math.Inf(1), math.Inf(-1)
	for _, s := range v.Samples() {
		x, y := v.SamplePosition(s)
		xmin = math.Min(xmin, x)
		xmax = math.Max(xmax, x)
		ymin = math.Min(ymin, y)
		ymax = math.Max(ymax, y)
	}
	if math.IsInf(xmin, 1) {
		xmin, xmax, ymin, ymax = -1, 1, -1, 1
	}
	if xmax == xmin {
		xmin, xmax = xmin-1, xmax+1
	}
	if ymax == ymin {
		ymin, ymax = ymin-1, ymax+1
	}

	columns := make([]string, 0, len(metadata))
	for col := range metadata {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	margin := 30.0
	page := interactivePage{
		Title:  title,
		Width:  width,
		Height: height,
		XLabel: axisCaption(v.XPC(), v.ExplainedVar(v.XPC())),
		YLabel: axisCaption(v.YPC(), v.ExplainedVar(v.YPC())),
	}
	for _, s := range v.Samples() {
		x, y := v.SamplePosition(s)
		px := margin + (x-xmin)/(xmax-xmin)*(float64(width)-2*margin)
		py := float64(height) - margin - (y-ymin)/(ymax-ymin)*(float64(height)-2*margin)

		tooltip := s
		for _, col := range columns {
			if val, ok := metadata[col][s]; ok {
				tooltip += fmt.Sprintf("\n%s: %s", col, val)
			}
		}
		page.Points = append(page.Points, interactivePoint{
			X:       px,
			Y:       py,
			Color:   colormap.Hex(v.Color(v.GroupOf(s))),
			Tooltip: tooltip,
		})
	}

	return interactiveTmpl.Execute(w, page)
}
