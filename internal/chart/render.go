package chart

import (
	"fmt"

	"datalens/domain/dataset"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Surface is the 2D drawing contract the renderer targets. Coordinates are
// in surface units with the origin at the top left and y growing down.
type Surface interface {
	Size() (width, height float64)
	Clear(bg drawing.Color)
	FillRect(r Rect, c drawing.Color)
	Line(x0, y0, x1, y1 float64, c drawing.Color, width float64)
	Wedge(cx, cy, radius, start, sweep float64, c drawing.Color)
	Disc(cx, cy, radius float64, c drawing.Color)
	Text(s string, x, y float64, anchor Anchor, c drawing.Color)
}

// Render clears s and draws d in the given style. Nothing beyond the clear
// is drawn for an empty distribution.
func Render(s Surface, d dataset.Distribution, kind Kind) {
	s.Clear(background)
	if d.Len() == 0 {
		return
	}
	w, h := s.Size()
	switch kind {
	case Pie:
		drawPie(s, PieGeometry(d, w, h))
	default:
		drawBars(s, BarGeometry(d, w, h))
	}
}

func drawBars(s Surface, layout BarLayout) {
	p := layout.Plot
	baseline := p.Y + p.H
	s.Line(p.X, p.Y, p.X, baseline, axisColor, 1)
	s.Line(p.X, baseline, p.X+p.W, baseline, axisColor, 1)

	for _, b := range layout.Bars {
		s.FillRect(b.Rect, b.Color)
		cx := b.Rect.X + b.Rect.W/2
		s.Text(FormatCount(b.Value), cx, b.Rect.Y-5, AnchorMiddle, textColor)
		s.Text(b.Label, cx, baseline+15, AnchorMiddle, textColor)
	}
}

func drawPie(s Surface, layout PieLayout) {
	for _, sl := range layout.Slices {
		s.Wedge(layout.CX, layout.CY, layout.Radius, sl.Start, sl.Sweep, sl.Color)
	}
	for _, sl := range layout.Slices {
		s.Line(sl.LeaderFrom[0], sl.LeaderFrom[1], sl.LeaderTo[0], sl.LeaderTo[1], leaderLine, 1)
		s.Text(fmt.Sprintf("%.1f%%", sl.Percent), sl.LabelAt[0], sl.LabelAt[1], sl.Anchor, textColor)
	}

	s.Disc(layout.CX, layout.CY, layout.InnerRadius, background)
	s.Text("Total", layout.CX, layout.CY-4, AnchorMiddle, textColor)
	s.Text(FormatCount(layout.Total), layout.CX, layout.CY+12, AnchorMiddle, textColor)

	for _, item := range layout.Legend {
		s.FillRect(item.Swatch, item.Color)
		s.Text(item.Label, item.TextAt[0], item.TextAt[1], AnchorStart, textColor)
	}
}
