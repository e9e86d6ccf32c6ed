// Package decomp derives the plotting state for a decomposed dataset.
//
// A View takes the tables produced by an external decomposition
// routine (reduced space, per-feature loadings, explained variance)
// and eagerly computes everything the renderers need: sample
// grouping, color and marker assignment, variance- and extent-scaled
// loadings, magnitude ranking, and per-component top features. It
// performs no reduction of its own and never mutates its inputs.
package decomp

import (
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/decompviz/server/internal/table"
	"github.com/decompviz/server/pkg/colormap"
)

// Distance metrics for vector-magnitude ranking.
const (
	DistanceL1 = "L1"
	DistanceL2 = "L2"
)

// Data kinds, governing the violin y-axis.
const (
	DataTypeExpression = "expression"
	DataTypeSplicing   = "splicing"
)

// Defaults applied by New for zero-valued config fields.
const (
	DefaultXPC          = "pc_1"
	DefaultYPC          = "pc_2"
	DefaultNVectors     = 20
	DefaultNTopFeatures = 50
	DefaultMaxCharWidth = 30
)

// defaultGroup is the label given to every sample when no grouping is
// supplied.
const defaultGroup = "all"

// Config contains view construction inputs. ReducedSpace and Loadings
// are required; everything else is optional.
type Config struct {
	// ReducedSpace is the (samples x dimensions) post-reduction table.
	ReducedSpace *table.Frame
	// Loadings is the (features x dimensions) contribution table.
	Loadings *table.Frame
	// ExplainedVariance maps each dimension to its fraction of total
	// variance. May be nil, in which case each dimension weighs 1.
	ExplainedVariance *table.Series

	// GroupBy maps sample to group label. Nil groups all samples
	// under one label.
	GroupBy map[string]string
	// Order is the explicit group display order for violins and
	// legends. Must only name known groups.
	Order []string

	// Singles, Pooled, and Outliers are per-sample raw measurement
	// tables (samples x features) used by the violin renderer and the
	// scatter overlays.
	Singles  *table.Frame
	Pooled   *table.Frame
	Outliers *table.Frame

	// Featurewise marks a transposed view where "samples" are
	// features; violins are disabled.
	Featurewise bool
	// DataType is "expression" or "splicing".
	DataType string

	// LabelToColor and LabelToMarker override the palette
	// auto-assignment; labels they omit still get palette entries.
	LabelToColor  map[string]color.RGBA
	LabelToMarker map[string]colormap.Marker
	// Palette generates auto-assigned group colors. Default Husl.
	Palette colormap.Palette

	// Renamer maps features to display names. Default identity.
	Renamer Renamer

	// ScaleByVariance multiplies each dimension's loadings by its
	// explained-variance fraction. Nil means true.
	ScaleByVariance *bool

	XPC          string
	YPC          string
	NVectors     int
	Distance     string
	NTopFeatures int
	MaxCharWidth int
}

// Group is an ordered set of samples sharing a label.
type Group struct {
	Label   string
	Samples []string
}

// RankedFeature pairs a feature with its scaled vector magnitude.
type RankedFeature struct {
	Feature   string
	Magnitude float64
}

// ComponentLoadings holds the selected top features for one
// dimension: the ascending low half followed by the high half, with
// matching raw loading values.
type ComponentLoadings struct {
	Labels   []string
	Loadings []float64
}

// View holds the derived plotting state. All fields are computed once
// at construction and never mutated afterwards.
type View struct {
	reduced   *table.Frame
	loadings  *table.Frame
	explained *table.Series

	singles  *table.Frame
	pooled   *table.Frame
	outliers *table.Frame

	xPC, yPC     string
	distance     string
	nVectors     int
	nTop         int
	maxCharWidth int
	dataType     string
	featurewise  bool
	renamer      Renamer

	groups        []Group
	groupOf       map[string]string
	labelToColor  map[string]color.RGBA
	labelToMarker map[string]colormap.Marker
	displayOrder  []string
	colorOrder    []color.RGBA

	varX, varY      float64
	scaleByVariance bool

	scaled     map[string][2]float64
	ranked     []RankedFeature
	topPerPC   map[string]ComponentLoadings
	topFeature map[string]struct{}
}

// New builds a view from the decomposition tables. It returns a
// ConfigurationError when the selected dimensions are absent or the
// inputs are inconsistent.
func New(cfg Config) (*View, error) {
	if cfg.ReducedSpace == nil {
		return nil, configErrorf("reduced space table is required")
	}
	if cfg.Loadings == nil {
		return nil, configErrorf("loadings table is required")
	}

	v := &View{
		reduced:      cfg.ReducedSpace,
		loadings:     cfg.Loadings,
		explained:    cfg.ExplainedVariance,
		singles:      cfg.Singles,
		pooled:       cfg.Pooled,
		outliers:     cfg.Outliers,
		xPC:          cfg.XPC,
		yPC:          cfg.YPC,
		distance:     cfg.Distance,
		nVectors:     cfg.NVectors,
		nTop:         cfg.NTopFeatures,
		maxCharWidth: cfg.MaxCharWidth,
		dataType:     cfg.DataType,
		featurewise:  cfg.Featurewise,
		renamer:      cfg.Renamer,
	}
	v.scaleByVariance = cfg.ScaleByVariance == nil || *cfg.ScaleByVariance
	if v.xPC == "" {
		v.xPC = DefaultXPC
	}
	if v.yPC == "" {
		v.yPC = DefaultYPC
	}
	if v.distance == "" {
		v.distance = DistanceL1
	}
	if v.distance != DistanceL1 && v.distance != DistanceL2 {
		return nil, configErrorf("unknown distance metric %q", v.distance)
	}
	if v.nVectors == 0 {
		v.nVectors = DefaultNVectors
	}
	if v.nTop == 0 {
		v.nTop = DefaultNTopFeatures
	}
	if v.maxCharWidth == 0 {
		v.maxCharWidth = DefaultMaxCharWidth
	}
	if v.dataType == "" {
		v.dataType = DataTypeExpression
	}
	if v.renamer == nil {
		v.renamer = identityRenamer{}
	}

	for _, pc := range []string{v.xPC, v.yPC} {
		if !v.reduced.HasCol(pc) {
			return nil, configErrorf("dimension %q not in reduced space", pc)
		}
		if !v.loadings.HasCol(pc) {
			return nil, configErrorf("dimension %q not in loadings", pc)
		}
	}

	if err := v.deriveGroups(cfg); err != nil {
		return nil, err
	}
	v.deriveVariance()
	v.scaleAndRank()
	v.selectTopFeatures()
	return v, nil
}

// deriveGroups groups samples by label in discovery order and assigns
// each group a color and marker from the fixed cyclic palettes.
func (v *View) deriveGroups(cfg Config) error {
	samples := v.reduced.RowKeys()

	v.groupOf = make(map[string]string, len(samples))
	byLabel := make(map[string]int)
	for _, s := range samples {
		label := defaultGroup
		if cfg.GroupBy != nil {
			if l, ok := cfg.GroupBy[s]; ok {
				label = l
			}
		}
		v.groupOf[s] = label
		i, seen := byLabel[label]
		if !seen {
			i = len(v.groups)
			byLabel[label] = i
			v.groups = append(v.groups, Group{Label: label})
		}
		v.groups[i].Samples = append(v.groups[i].Samples, s)
	}

	palette := cfg.Palette
	if palette == nil {
		palette = colormap.Husl
	}
	autoColors := palette.Colors(len(v.groups))

	v.labelToColor = make(map[string]color.RGBA, len(v.groups))
	v.labelToMarker = make(map[string]colormap.Marker, len(v.groups))
	for i, g := range v.groups {
		c, ok := cfg.LabelToColor[g.Label]
		if !ok {
			c = autoColors[i]
		}
		v.labelToColor[g.Label] = c

		m, ok := cfg.LabelToMarker[g.Label]
		if !ok {
			m = colormap.MarkerAt(i)
		}
		v.labelToMarker[g.Label] = m
	}

	if len(cfg.Order) > 0 {
		for _, label := range cfg.Order {
			if _, ok := byLabel[label]; !ok {
				return configErrorf("ordered label %q is not a group", label)
			}
		}
		v.displayOrder = append([]string(nil), cfg.Order...)
	} else {
		for _, g := range v.groups {
			v.displayOrder = append(v.displayOrder, g.Label)
		}
	}
	for _, label := range v.displayOrder {
		v.colorOrder = append(v.colorOrder, v.labelToColor[label])
	}
	return nil
}

// deriveVariance picks the explained-variance weights for the two
// displayed dimensions, defaulting to 1 when no variance is supplied.
func (v *View) deriveVariance() {
	v.varX, v.varY = 1, 1
	if v.explained == nil {
		return
	}
	if val, ok := v.explained.At(v.xPC); ok {
		v.varX = val
	}
	if val, ok := v.explained.At(v.yPC); ok {
		v.varY = val
	}
}

// scaleAndRank scales the 2D loadings by variance and by the ratio of
// the sample cloud's extent to the loading cloud's extent, then ranks
// features by vector magnitude.
func (v *View) scaleAndRank() {
	scaleVar := v.scaleByVariance

	features := v.loadings.RowKeys()
	v.scaled = make(map[string][2]float64, len(features))
	loadingNorms := make([]float64, 0, len(features))
	for _, f := range features {
		lx, _ := v.loadings.At(f, v.xPC)
		ly, _ := v.loadings.At(f, v.yPC)
		if scaleVar {
			lx *= v.varX
			ly *= v.varY
		}
		v.scaled[f] = [2]float64{lx, ly}
		loadingNorms = append(loadingNorms, math.Hypot(lx, ly))
	}

	samples := v.reduced.RowKeys()
	sampleNorms := make([]float64, 0, len(samples))
	for _, s := range samples {
		x, _ := v.reduced.At(s, v.xPC)
		y, _ := v.reduced.At(s, v.yPC)
		sampleNorms = append(sampleNorms, math.Hypot(x, y))
	}

	farthest := 0.0
	if len(sampleNorms) > 0 {
		farthest = floats.Max(sampleNorms)
	}
	wholeSpace := 0.0
	if len(loadingNorms) > 0 {
		wholeSpace = floats.Max(loadingNorms)
	}
	if wholeSpace == 0 {
		// Degenerate loading cloud; a unit divisor keeps the scale finite.
		wholeSpace = 1
	}
	scale := 0.25 * farthest / wholeSpace

	v.ranked = make([]RankedFeature, 0, len(features))
	for _, f := range features {
		xy := v.scaled[f]
		xy[0] *= scale
		xy[1] *= scale
		v.scaled[f] = xy

		var mag float64
		if v.distance == DistanceL2 {
			mag = math.Hypot(xy[0], xy[1])
		} else {
			mag = math.Abs(xy[0]) + math.Abs(xy[1])
		}
		v.ranked = append(v.ranked, RankedFeature{Feature: f, Magnitude: mag})
	}
	sort.SliceStable(v.ranked, func(i, j int) bool {
		return v.ranked[i].Magnitude > v.ranked[j].Magnitude
	})
}

// selectTopFeatures picks, per displayed dimension, the most negative
// and most positive raw loadings and folds them into one combined set.
func (v *View) selectTopFeatures() {
	v.topPerPC = make(map[string]ComponentLoadings, 2)
	v.topFeature = make(map[string]struct{})

	for _, pc := range []string{v.xPC, v.yPC} {
		col, _ := v.loadings.Column(pc)
		keys := col.Keys()
		values := col.Values()

		order := make([]int, len(keys))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return values[order[a]] < values[order[b]]
		})

		var labels []string
		var loads []float64
		if len(keys) > v.nTop {
			half := v.nTop / 2
			picked := append(append([]int(nil), order[:half]...), order[len(order)-half:]...)
			for _, i := range picked {
				labels = append(labels, keys[i])
				loads = append(loads, values[i])
			}
		} else {
			for _, i := range order {
				labels = append(labels, keys[i])
				loads = append(loads, values[i])
			}
		}

		v.topPerPC[pc] = ComponentLoadings{Labels: labels, Loadings: loads}
		for _, label := range labels {
			v.topFeature[label] = struct{}{}
		}
	}
}

// XPC returns the x-axis dimension key.
func (v *View) XPC() string { return v.xPC }

// YPC returns the y-axis dimension key.
func (v *View) YPC() string { return v.yPC }

// NVectors returns the configured vector count.
func (v *View) NVectors() int { return v.nVectors }

// DataType returns the data kind ("expression" or "splicing").
func (v *View) DataType() string { return v.dataType }

// Featurewise reports whether this is a transposed (feature-as-sample)
// view, which disables violins.
func (v *View) Featurewise() bool { return v.featurewise }

// Groups returns the sample groups in discovery order.
func (v *View) Groups() []Group { return v.groups }

// GroupOf returns the group label for a sample.
func (v *View) GroupOf(sample string) string { return v.groupOf[sample] }

// Color returns the color assigned to a group label.
func (v *View) Color(label string) color.RGBA { return v.labelToColor[label] }

// Marker returns the marker assigned to a group label.
func (v *View) Marker(label string) colormap.Marker { return v.labelToMarker[label] }

// DisplayOrder returns group labels in display order: the caller's
// explicit order when given, else discovery order.
func (v *View) DisplayOrder() []string { return v.displayOrder }

// ColorOrder returns group colors in display order, for violin
// coloring consistency.
func (v *View) ColorOrder() []color.RGBA { return v.colorOrder }

// ExplainedVar returns the variance weight for one of the two
// displayed dimensions (1 when no variance table was supplied).
func (v *View) ExplainedVar(pc string) float64 {
	switch pc {
	case v.xPC:
		return v.varX
	case v.yPC:
		return v.varY
	}
	if v.explained != nil {
		if val, ok := v.explained.At(pc); ok {
			return val
		}
	}
	return 1
}

// Explained returns the full explained-variance series, or nil.
func (v *View) Explained() *table.Series { return v.explained }

// Dimensions returns the reduced space's dimension keys in order.
func (v *View) Dimensions() []string { return v.reduced.ColKeys() }

// Samples returns the sample identifiers in table order.
func (v *View) Samples() []string { return v.reduced.RowKeys() }

// SamplePosition returns a sample's 2D position on the displayed
// dimensions.
func (v *View) SamplePosition(sample string) (x, y float64) {
	x, _ = v.reduced.At(sample, v.xPC)
	y, _ = v.reduced.At(sample, v.yPC)
	return x, y
}

// ScaledLoading returns a feature's variance- and extent-scaled 2D
// loading vector.
func (v *View) ScaledLoading(feature string) (x, y float64) {
	xy := v.scaled[feature]
	return xy[0], xy[1]
}

// Ranked returns all features ordered by descending vector magnitude.
func (v *View) Ranked() []RankedFeature { return v.ranked }

// TopVectors returns the first NVectors ranked features, the ones the
// scatter draws as arrows.
func (v *View) TopVectors() []RankedFeature {
	if len(v.ranked) <= v.nVectors {
		return v.ranked
	}
	return v.ranked[:v.nVectors]
}

// ComponentTop returns the selected top features for one displayed
// dimension.
func (v *View) ComponentTop(pc string) (ComponentLoadings, bool) {
	cl, ok := v.topPerPC[pc]
	return cl, ok
}

// Singles returns the raw per-sample measurement table, or nil.
func (v *View) Singles() *table.Frame { return v.singles }

// Pooled returns the pooled-sample table, or nil.
func (v *View) Pooled() *table.Frame { return v.pooled }

// Outliers returns the outlier-sample table, or nil.
func (v *View) Outliers() *table.Frame { return v.outliers }

// IsPooled reports whether a sample appears in the pooled table.
func (v *View) IsPooled(sample string) bool {
	return v.pooled != nil && v.pooled.HasRow(sample)
}

// IsOutlier reports whether a sample appears in the outlier table.
func (v *View) IsOutlier(sample string) bool {
	return v.outliers != nil && v.outliers.HasRow(sample)
}

// DisplayName returns a feature's renamed display name.
func (v *View) DisplayName(feature string) string {
	return v.renamer.Rename(feature)
}

// Shorten truncates a display name beyond the configured width,
// appending an ellipsis.
func (v *View) Shorten(name string) string {
	if len(name) > v.maxCharWidth {
		return name[:v.maxCharWidth] + "..."
	}
	return name
}

// ViolinFeatures returns the combined top-ranked and top-loading
// features, deduplicated and ordered by display name (ties broken by
// feature identifier) for a deterministic violin grid.
func (v *View) ViolinFeatures() []string {
	set := make(map[string]struct{}, len(v.topFeature)+v.nVectors)
	for f := range v.topFeature {
		set[f] = struct{}{}
	}
	for _, rf := range v.TopVectors() {
		set[rf.Feature] = struct{}{}
	}
	features := make([]string, 0, len(set))
	for f := range set {
		features = append(features, f)
	}
	sort.Slice(features, func(i, j int) bool {
		ni, nj := v.DisplayName(features[i]), v.DisplayName(features[j])
		if ni != nj {
			return ni < nj
		}
		return features[i] < features[j]
	})
	return features
}
