package chart

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"math"

	"datalens/domain/dataset"

	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// RasterSurface draws into an RGBA image. Shapes go through the go-chart
// raster graphics context; text uses the 7x13 bitmap face.
type RasterSurface struct {
	img *image.RGBA
	gc  *drawing.RasterGraphicContext
}

// NewRasterSurface creates a width x height surface
func NewRasterSurface(width, height int) (*RasterSurface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid chart size %dx%d", width, height)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	gc, err := drawing.NewRasterGraphicContext(img)
	if err != nil {
		return nil, fmt.Errorf("failed to create graphics context: %w", err)
	}
	return &RasterSurface{img: img, gc: gc}, nil
}

func (r *RasterSurface) Size() (float64, float64) {
	b := r.img.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

func (r *RasterSurface) Clear(bg drawing.Color) {
	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
}

func (r *RasterSurface) FillRect(rect Rect, c drawing.Color) {
	if rect.W <= 0 || rect.H <= 0 {
		return
	}
	r.gc.BeginPath()
	r.gc.SetFillColor(c)
	r.gc.MoveTo(rect.X, rect.Y)
	r.gc.LineTo(rect.X+rect.W, rect.Y)
	r.gc.LineTo(rect.X+rect.W, rect.Y+rect.H)
	r.gc.LineTo(rect.X, rect.Y+rect.H)
	r.gc.Close()
	r.gc.Fill()
}

func (r *RasterSurface) Line(x0, y0, x1, y1 float64, c drawing.Color, width float64) {
	r.gc.BeginPath()
	r.gc.SetStrokeColor(c)
	r.gc.SetLineWidth(width)
	r.gc.MoveTo(x0, y0)
	r.gc.LineTo(x1, y1)
	r.gc.Stroke()
}

func (r *RasterSurface) Wedge(cx, cy, radius, start, sweep float64, c drawing.Color) {
	r.gc.BeginPath()
	r.gc.SetFillColor(c)
	r.gc.MoveTo(cx, cy)
	r.gc.ArcTo(cx, cy, radius, radius, start, sweep)
	r.gc.Close()
	r.gc.Fill()
}

func (r *RasterSurface) Disc(cx, cy, radius float64, c drawing.Color) {
	r.Wedge(cx, cy, radius, 0, 2*math.Pi, c)
}

func (r *RasterSurface) Text(s string, x, y float64, anchor Anchor, c drawing.Color) {
	face := basicfont.Face7x13
	dr := &font.Drawer{Dst: r.img, Src: image.NewUniform(c), Face: face}
	w := dr.MeasureString(s).Ceil()
	px := int(x)
	switch anchor {
	case AnchorMiddle:
		px -= w / 2
	case AnchorEnd:
		px -= w
	}
	dr.Dot = fixed.Point26_6{X: fixed.I(px), Y: fixed.I(int(y))}
	dr.DrawString(s)
}

// Image returns the drawn image
func (r *RasterSurface) Image() image.Image {
	return r.img
}

// WritePNG encodes the surface as PNG
func (r *RasterSurface) WritePNG(w io.Writer) error {
	return png.Encode(w, r.img)
}

// RenderPNG draws d on a new width x height surface and writes it as PNG
func RenderPNG(w io.Writer, d dataset.Distribution, kind Kind, width, height int) error {
	s, err := NewRasterSurface(width, height)
	if err != nil {
		return err
	}
	Render(s, d, kind)
	return s.WritePNG(w)
}
