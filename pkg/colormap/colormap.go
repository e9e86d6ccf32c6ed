// Package colormap provides color schemes and marker cycles for
// visualization.
package colormap

import (
	"fmt"
	"image/color"
	"math"
)

// Palette generates n distinct colors for categorical groups.
type Palette interface {
	Colors(n int) []color.RGBA
}

// Marker is a scatter marker shape token.
type Marker string

// Marker shapes, cycled through in group discovery order.
const (
	MarkerCircle       Marker = "circle"
	MarkerTriangleUp   Marker = "triangle_up"
	MarkerSquare       Marker = "square"
	MarkerTriangleDown Marker = "triangle_down"
	MarkerStar         Marker = "star"
	MarkerDiamond      Marker = "diamond"
	MarkerHexagon      Marker = "hexagon"
)

// Markers is the fixed marker cycle.
var Markers = []Marker{
	MarkerCircle,
	MarkerTriangleUp,
	MarkerSquare,
	MarkerTriangleDown,
	MarkerStar,
	MarkerDiamond,
	MarkerHexagon,
}

// MarkerAt returns the marker for the i-th group, wrapping around.
func MarkerAt(i int) Marker {
	return Markers[i%len(Markers)]
}

// HuslPalette spaces hues evenly around the color wheel at fixed
// saturation and lightness, so any number of groups gets visually
// even colors.
type HuslPalette struct {
	Saturation float64
	Lightness  float64
}

// Husl is the default group palette.
var Husl = HuslPalette{Saturation: 0.60, Lightness: 0.65}

// Colors returns n evenly-spaced hues.
func (p HuslPalette) Colors(n int) []color.RGBA {
	if n <= 0 {
		return nil
	}
	out := make([]color.RGBA, n)
	for i := 0; i < n; i++ {
		// Offset so the first color lands on a warm hue rather than pure red.
		hue := math.Mod(float64(i)/float64(n)+0.01, 1.0)
		out[i] = hslToRGB(hue, p.Saturation, p.Lightness)
	}
	return out
}

func hslToRGB(h, s, l float64) color.RGBA {
	if s == 0 {
		v := uint8(math.Round(l * 255))
		return color.RGBA{v, v, v, 255}
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	r := hueToChannel(p, q, h+1.0/3.0)
	g := hueToChannel(p, q, h)
	b := hueToChannel(p, q, h-1.0/3.0)
	return color.RGBA{
		R: uint8(math.Round(r * 255)),
		G: uint8(math.Round(g * 255)),
		B: uint8(math.Round(b * 255)),
		A: 255,
	}
}

func hueToChannel(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}

// CategoricalPalette provides a fixed list of distinct colors.
type CategoricalPalette struct {
	colors []color.RGBA
}

// Colors returns the first n colors, wrapping when n exceeds the list.
func (c CategoricalPalette) Colors(n int) []color.RGBA {
	out := make([]color.RGBA, n)
	for i := 0; i < n; i++ {
		out[i] = c.colors[i%len(c.colors)]
	}
	return out
}

// AtIndex returns color at index (wraps around).
func (c CategoricalPalette) AtIndex(i int) color.RGBA {
	return c.colors[i%len(c.colors)]
}

// Categorical is a palette of 20 distinct colors (matplotlib tab20 order).
var Categorical = CategoricalPalette{
	colors: []color.RGBA{
		{31, 119, 180, 255},  // Blue
		{255, 127, 14, 255},  // Orange
		{44, 160, 44, 255},   // Green
		{214, 39, 40, 255},   // Red
		{148, 103, 189, 255}, // Purple
		{140, 86, 75, 255},   // Brown
		{227, 119, 194, 255}, // Pink
		{127, 127, 127, 255}, // Gray
		{188, 189, 34, 255},  // Olive
		{23, 190, 207, 255},  // Cyan
		{174, 199, 232, 255}, // Light blue
		{255, 187, 120, 255}, // Light orange
		{152, 223, 138, 255}, // Light green
		{255, 152, 150, 255}, // Light red
		{197, 176, 213, 255}, // Light purple
		{196, 156, 148, 255}, // Light brown
		{247, 182, 210, 255}, // Light pink
		{199, 199, 199, 255}, // Light gray
		{219, 219, 141, 255}, // Light olive
		{158, 218, 229, 255}, // Light cyan
	},
}

// Deep mirrors the default seaborn "deep" cycle; Deep[0] is the
// standard single-series plotting color.
var Deep = []color.RGBA{
	{76, 114, 176, 255},
	{221, 132, 82, 255},
	{85, 168, 104, 255},
	{196, 78, 82, 255},
	{129, 114, 179, 255},
	{147, 120, 96, 255},
}

// ByName returns a named palette.
func ByName(name string) (Palette, error) {
	switch name {
	case "", "husl":
		return Husl, nil
	case "categorical":
		return Categorical, nil
	default:
		return nil, fmt.Errorf("unknown palette: %s", name)
	}
}

// Hex formats a color as a #rrggbb string for HTML output.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
