package chart

import (
	"fmt"
	"math"

	"datalens/domain/dataset"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Anchor is the horizontal alignment of a text label
type Anchor int

const (
	AnchorStart Anchor = iota
	AnchorMiddle
	AnchorEnd
)

// Padding around the plot area
type Padding struct {
	Top, Right, Bottom, Left float64
}

// Layout constants
var (
	BarPadding = Padding{Top: 30, Right: 20, Bottom: 50, Left: 50}
)

const (
	// BarGap is the horizontal space between bars
	BarGap = 10.0
	// Headroom scales the tallest value so its label is not clipped
	Headroom = 1.1

	pieMargin      = 40.0
	pieLegendWidth = 150.0
	leaderInner    = 5.0
	leaderOuter    = 20.0
	donutRatio     = 0.5
	legendRow      = 20.0
	legendSwatch   = 12.0
)

// Rect is an axis-aligned rectangle in surface coordinates (y grows down)
type Rect struct {
	X, Y, W, H float64
}

// BarSpec is one laid out bar
type BarSpec struct {
	Label string
	Value float64
	Rect  Rect
	Color drawing.Color
}

// BarLayout is the geometry of a bar chart
type BarLayout struct {
	Plot     Rect
	MaxValue float64
	Bars     []BarSpec
}

// BarGeometry lays out d as bars inside a width x height surface. The scale
// ceiling is the largest count times Headroom, so every bar is strictly
// shorter than the plot.
func BarGeometry(d dataset.Distribution, width, height float64) BarLayout {
	pad := BarPadding
	plot := Rect{
		X: pad.Left,
		Y: pad.Top,
		W: math.Max(width-pad.Left-pad.Right, 1),
		H: math.Max(height-pad.Top-pad.Bottom, 1),
	}
	layout := BarLayout{Plot: plot, MaxValue: d.Max() * Headroom}
	n := d.Len()
	if n == 0 {
		return layout
	}
	if layout.MaxValue <= 0 {
		layout.MaxValue = 1
	}

	slot := plot.W / float64(n)
	barW := math.Max(slot-BarGap, 1)
	baseline := plot.Y + plot.H
	for i, b := range d.Buckets {
		h := math.Max(b.Count, 0) / layout.MaxValue * plot.H
		x := plot.X + float64(i)*slot + (slot-barW)/2
		layout.Bars = append(layout.Bars, BarSpec{
			Label: b.Label,
			Value: b.Count,
			Rect:  Rect{X: x, Y: baseline - h, W: barW, H: h},
			Color: ColorAt(i),
		})
	}
	return layout
}

// SliceSpec is one laid out pie slice. Angles are radians clockwise from
// the positive x axis.
type SliceSpec struct {
	Label   string
	Value   float64
	Percent float64
	Start   float64
	Sweep   float64
	Mid     float64
	Color   drawing.Color

	LeaderFrom [2]float64
	LeaderTo   [2]float64
	LabelAt    [2]float64
	Anchor     Anchor
}

// LegendItem is one legend row
type LegendItem struct {
	Label  string
	Color  drawing.Color
	Swatch Rect
	TextAt [2]float64
}

// PieLayout is the geometry of a donut chart
type PieLayout struct {
	CX, CY      float64
	Radius      float64
	InnerRadius float64
	Total       float64
	Slices      []SliceSpec
	Legend      []LegendItem
}

// PieGeometry lays out d as a donut. Slices start at angle 0 and follow data
// order. Labels sit outside the radius at each slice's mid angle, anchored
// away from the centre. A zero total splits the circle evenly.
func PieGeometry(d dataset.Distribution, width, height float64) PieLayout {
	legendW := 0.0
	if width > 2*pieLegendWidth {
		legendW = pieLegendWidth
	}
	pieW := width - legendW
	layout := PieLayout{
		CX:    pieW / 2,
		CY:    height / 2,
		Total: d.Total(),
	}
	layout.Radius = math.Max(math.Min(pieW, height)/2-pieMargin, 10)
	layout.InnerRadius = layout.Radius * donutRatio

	n := d.Len()
	if n == 0 {
		return layout
	}

	start := 0.0
	for i, b := range d.Buckets {
		share := 1 / float64(n)
		if layout.Total > 0 {
			share = math.Max(b.Count, 0) / layout.Total
		}
		sweep := share * 2 * math.Pi
		mid := start + sweep/2
		cos, sin := math.Cos(mid), math.Sin(mid)

		anchor := AnchorStart
		if cos < 0 {
			anchor = AnchorEnd
		}
		r := layout.Radius
		layout.Slices = append(layout.Slices, SliceSpec{
			Label:      b.Label,
			Value:      b.Count,
			Percent:    share * 100,
			Start:      start,
			Sweep:      sweep,
			Mid:        mid,
			Color:      ColorAt(i),
			LeaderFrom: [2]float64{layout.CX + cos*(r+leaderInner), layout.CY + sin*(r+leaderInner)},
			LeaderTo:   [2]float64{layout.CX + cos*(r+leaderOuter), layout.CY + sin*(r+leaderOuter)},
			LabelAt:    [2]float64{layout.CX + cos*(r+leaderOuter+4), layout.CY + sin*(r+leaderOuter+4)},
			Anchor:     anchor,
		})
		start += sweep
	}

	if legendW > 0 {
		x := pieW + 10
		y := math.Max(layout.CY-float64(n)*legendRow/2, 10)
		for i, s := range layout.Slices {
			top := y + float64(i)*legendRow
			layout.Legend = append(layout.Legend, LegendItem{
				Label:  s.Label,
				Color:  s.Color,
				Swatch: Rect{X: x, Y: top, W: legendSwatch, H: legendSwatch},
				TextAt: [2]float64{x + legendSwatch + 6, top + legendSwatch - 1},
			})
		}
	}
	return layout
}

// SweepTotal sums the slice angles
func (p PieLayout) SweepTotal() float64 {
	total := 0.0
	for _, s := range p.Slices {
		total += s.Sweep
	}
	return total
}

// FormatCount renders a count without a trailing ".0" for whole numbers
func FormatCount(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
