package chart

import (
	"bytes"
	"image/png"
	"math"
	"testing"

	"datalens/domain/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

func dist(counts ...float64) dataset.Distribution {
	d := dataset.Distribution{Column: "c"}
	for i, c := range counts {
		d.Buckets = append(d.Buckets, dataset.Bucket{Label: string(rune('a' + i)), Count: c})
	}
	return d
}

// recorder is a Surface that keeps a log of draw calls
type recorder struct {
	w, h   float64
	ops    []string
	wedges []float64
	texts  []string
}

func (r *recorder) Size() (float64, float64) { return r.w, r.h }
func (r *recorder) Clear(drawing.Color)      { r.ops = append(r.ops, "clear") }
func (r *recorder) FillRect(Rect, drawing.Color) {
	r.ops = append(r.ops, "rect")
}
func (r *recorder) Line(x0, y0, x1, y1 float64, c drawing.Color, w float64) {
	r.ops = append(r.ops, "line")
}
func (r *recorder) Wedge(cx, cy, radius, start, sweep float64, c drawing.Color) {
	r.ops = append(r.ops, "wedge")
	r.wedges = append(r.wedges, sweep)
}
func (r *recorder) Disc(cx, cy, radius float64, c drawing.Color) {
	r.ops = append(r.ops, "disc")
}
func (r *recorder) Text(s string, x, y float64, a Anchor, c drawing.Color) {
	r.ops = append(r.ops, "text")
	r.texts = append(r.texts, s)
}

func count(ops []string, op string) int {
	n := 0
	for _, o := range ops {
		if o == op {
			n++
		}
	}
	return n
}

func TestBarHeightsFollowValuesWithHeadroom(t *testing.T) {
	layout := BarGeometry(dist(10, 20, 30), 800, 420)
	require.Len(t, layout.Bars, 3)
	assert.InDelta(t, 33.0, layout.MaxValue, 1e-9)

	for i := 1; i < len(layout.Bars); i++ {
		assert.Greater(t, layout.Bars[i].Rect.H, layout.Bars[i-1].Rect.H)
	}
	tallest := layout.Bars[2].Rect
	assert.Less(t, tallest.H, layout.Plot.H)
	assert.Greater(t, tallest.Y, layout.Plot.Y)

	// every bar sits on the axis
	for _, b := range layout.Bars {
		assert.InDelta(t, layout.Plot.Y+layout.Plot.H, b.Rect.Y+b.Rect.H, 1e-9)
	}
}

func TestBarWidthIsSlotMinusGap(t *testing.T) {
	layout := BarGeometry(dist(1, 2, 3, 4), 800, 420)
	slot := layout.Plot.W / 4
	for i, b := range layout.Bars {
		assert.InDelta(t, slot-BarGap, b.Rect.W, 1e-9)
		assert.GreaterOrEqual(t, b.Rect.X, layout.Plot.X+float64(i)*slot)
		assert.LessOrEqual(t, b.Rect.X+b.Rect.W, layout.Plot.X+float64(i+1)*slot+1e-9)
	}
}

func TestBarManyCategoriesKeepsPositiveWidth(t *testing.T) {
	counts := make([]float64, 500)
	for i := range counts {
		counts[i] = float64(i)
	}
	layout := BarGeometry(dist(counts...), 300, 200)
	for _, b := range layout.Bars {
		assert.Greater(t, b.Rect.W, 0.0)
	}
}

func TestBarAllZeroCounts(t *testing.T) {
	layout := BarGeometry(dist(0, 0), 400, 300)
	for _, b := range layout.Bars {
		assert.Equal(t, 0.0, b.Rect.H)
		assert.False(t, math.IsNaN(b.Rect.Y))
	}
}

func TestPieSweepsSumToFullCircle(t *testing.T) {
	cases := [][]float64{
		{1},
		{10, 5},
		{3, 3, 3},
		{1e9, 1, 0.5, 7},
		{0, 0, 0},
	}
	for _, counts := range cases {
		layout := PieGeometry(dist(counts...), 800, 420)
		assert.Len(t, layout.Slices, len(counts))
		assert.InDelta(t, 2*math.Pi, layout.SweepTotal(), 1e-9)
	}
}

func TestPieSlicesStartAtZeroInDataOrder(t *testing.T) {
	layout := PieGeometry(dist(10, 5), 800, 420)
	require.Len(t, layout.Slices, 2)

	assert.Equal(t, 0.0, layout.Slices[0].Start)
	assert.InDelta(t, 2*math.Pi*10/15, layout.Slices[0].Sweep, 1e-9)
	assert.InDelta(t, 2*math.Pi*5/15, layout.Slices[1].Sweep, 1e-9)
	assert.InDelta(t, layout.Slices[0].Sweep, layout.Slices[1].Start, 1e-9)
	assert.Equal(t, "a", layout.Slices[0].Label)
}

func TestPieLabelAnchorsAwayFromCentre(t *testing.T) {
	layout := PieGeometry(dist(1, 1, 1, 1), 800, 420)
	for _, s := range layout.Slices {
		if math.Cos(s.Mid) < 0 {
			assert.Equal(t, AnchorEnd, s.Anchor)
			assert.Less(t, s.LabelAt[0], layout.CX)
		} else {
			assert.Equal(t, AnchorStart, s.Anchor)
			assert.GreaterOrEqual(t, s.LabelAt[0], layout.CX)
		}
		dx, dy := s.LabelAt[0]-layout.CX, s.LabelAt[1]-layout.CY
		assert.Greater(t, math.Hypot(dx, dy), layout.Radius)
	}
	assert.Less(t, layout.InnerRadius, layout.Radius)
	assert.Len(t, layout.Legend, 4)
}

func TestPieSingleCategoryIsFullCircle(t *testing.T) {
	layout := PieGeometry(dist(42), 400, 400)
	require.Len(t, layout.Slices, 1)
	assert.InDelta(t, 2*math.Pi, layout.Slices[0].Sweep, 1e-9)
	assert.InDelta(t, 100.0, layout.Slices[0].Percent, 1e-9)
}

func TestRenderEmptyOnlyClears(t *testing.T) {
	r := &recorder{w: 800, h: 420}
	Render(r, dataset.Distribution{}, Bar)
	assert.Equal(t, []string{"clear"}, r.ops)
}

func TestRenderBarDrawsAxesBarsAndLabels(t *testing.T) {
	r := &recorder{w: 800, h: 420}
	Render(r, dist(10, 20, 30), Bar)

	assert.Equal(t, "clear", r.ops[0])
	assert.Equal(t, 2, count(r.ops, "line"))
	assert.Equal(t, 3, count(r.ops, "rect"))
	assert.Equal(t, 6, count(r.ops, "text"))
	assert.Contains(t, r.texts, "30")
}

func TestRenderPieDrawsDonut(t *testing.T) {
	r := &recorder{w: 800, h: 420}
	Render(r, dist(10, 5), Pie)

	assert.Equal(t, 2, count(r.ops, "wedge"))
	assert.Equal(t, 1, count(r.ops, "disc"))
	assert.Contains(t, r.texts, "66.7%")
	assert.Contains(t, r.texts, "33.3%")
	assert.Contains(t, r.texts, "15")

	// a second render starts from a clear surface again
	r.ops = nil
	Render(r, dist(10, 5), Pie)
	assert.Equal(t, "clear", r.ops[0])
}

func TestColorsCycle(t *testing.T) {
	assert.Len(t, Palette, 8)
	assert.Equal(t, ColorAt(0), ColorAt(8))
	layout := BarGeometry(dist(1, 2, 3, 4, 5, 6, 7, 8, 9), 900, 400)
	assert.Equal(t, layout.Bars[0].Color, layout.Bars[8].Color)
}

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, dist(10, 5), Pie, 320, 240))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())

	_, err = NewRasterSurface(0, 10)
	assert.Error(t, err)
}

func TestRasterSurfaceFillsShapes(t *testing.T) {
	s, err := NewRasterSurface(40, 40)
	require.NoError(t, err)
	s.Clear(drawing.ColorWhite)
	s.FillRect(Rect{X: 5, Y: 5, W: 10, H: 10}, drawing.ColorBlack)
	s.Disc(30, 30, 6, drawing.ColorBlack)

	r, g, b, _ := s.Image().At(10, 10).RGBA()
	assert.Equal(t, [3]uint32{0, 0, 0}, [3]uint32{r, g, b})
	r, g, b, _ = s.Image().At(30, 30).RGBA()
	assert.Equal(t, [3]uint32{0, 0, 0}, [3]uint32{r, g, b})
	r, g, b, _ = s.Image().At(20, 2).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b})
}
