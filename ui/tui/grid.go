package tui

import (
	"fmt"
	"math"
	"strings"

	"datalens/internal/chart"

	"github.com/charmbracelet/lipgloss"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Each terminal cell stands for cellW x cellH surface units, roughly the
// aspect of a monospace glyph, so pie wedges stay round on screen.
const (
	cellW = 8.0
	cellH = 16.0
)

type cell struct {
	r     rune
	color string
}

// GridSurface is a chart.Surface that rasterizes onto terminal cells.
// Filled shapes become colored block glyphs; text is written in the
// terminal's default color.
type GridSurface struct {
	cols, rows int
	cells      [][]cell
}

var _ chart.Surface = (*GridSurface)(nil)

// NewGridSurface creates a surface of cols x rows terminal cells
func NewGridSurface(cols, rows int) *GridSurface {
	g := &GridSurface{cols: max(cols, 1), rows: max(rows, 1)}
	g.Clear(drawing.ColorWhite)
	return g
}

func (g *GridSurface) Size() (float64, float64) {
	return float64(g.cols) * cellW, float64(g.rows) * cellH
}

// Clear empties every cell; the background color is the terminal's own
func (g *GridSurface) Clear(drawing.Color) {
	g.cells = make([][]cell, g.rows)
	for y := range g.cells {
		g.cells[y] = make([]cell, g.cols)
		for x := range g.cells[y] {
			g.cells[y][x] = cell{r: ' '}
		}
	}
}

func (g *GridSurface) set(x, y int, r rune, color string) {
	if x < 0 || y < 0 || x >= g.cols || y >= g.rows {
		return
	}
	g.cells[y][x] = cell{r: r, color: color}
}

// FillRect fills the cells whose centers fall inside r. A rectangle thinner
// than a cell still gets one column so narrow bars stay visible.
func (g *GridSurface) FillRect(r chart.Rect, c drawing.Color) {
	if r.W <= 0 || r.H <= 0 {
		return
	}
	x0 := int(math.Round(r.X / cellW))
	x1 := int(math.Round((r.X + r.W) / cellW))
	y0 := int(math.Round(r.Y / cellH))
	y1 := int(math.Round((r.Y + r.H) / cellH))
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	hex := colorHex(c)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			g.set(x, y, '█', hex)
		}
	}
}

// Line draws axis-aligned lines with box glyphs and anything else with dots
func (g *GridSurface) Line(x0, y0, x1, y1 float64, c drawing.Color, _ float64) {
	cx0, cy0 := int(x0/cellW), int(y0/cellH)
	cx1, cy1 := int(x1/cellW), int(y1/cellH)
	glyph := '·'
	switch {
	case cy0 == cy1:
		glyph = '─'
	case cx0 == cx1:
		glyph = '│'
	}
	hex := colorHex(c)

	dx, dy := abs(cx1-cx0), -abs(cy1-cy0)
	sx, sy := sign(cx1-cx0), sign(cy1-cy0)
	e := dx + dy
	for {
		if g.cells[clamp(cy0, g.rows)][clamp(cx0, g.cols)].r == ' ' {
			g.set(cx0, cy0, glyph, hex)
		}
		if cx0 == cx1 && cy0 == cy1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			cx0 += sx
		}
		if e2 <= dx {
			e += dx
			cy0 += sy
		}
	}
}

// Wedge fills the cells whose centers lie inside the circular sector
func (g *GridSurface) Wedge(cx, cy, radius, start, sweep float64, c drawing.Color) {
	hex := colorHex(c)
	g.eachCellIn(cx, cy, radius, func(x, y int, angle float64) {
		rel := math.Mod(angle-start+4*math.Pi, 2*math.Pi)
		if rel < sweep || sweep >= 2*math.Pi {
			g.set(x, y, '█', hex)
		}
	})
}

// Disc blanks the cells inside the circle; it cuts the donut hole
func (g *GridSurface) Disc(cx, cy, radius float64, _ drawing.Color) {
	g.eachCellIn(cx, cy, radius, func(x, y int, _ float64) {
		g.set(x, y, ' ', "")
	})
}

func (g *GridSurface) eachCellIn(cx, cy, radius float64, fn func(x, y int, angle float64)) {
	for y := 0; y < g.rows; y++ {
		for x := 0; x < g.cols; x++ {
			px := (float64(x) + 0.5) * cellW
			py := (float64(y) + 0.5) * cellH
			dx, dy := px-cx, py-cy
			if math.Hypot(dx, dy) > radius {
				continue
			}
			fn(x, y, math.Atan2(dy, dx))
		}
	}
}

// Text writes s on the row containing y, aligned on x by anchor
func (g *GridSurface) Text(s string, x, y float64, anchor chart.Anchor, _ drawing.Color) {
	runes := []rune(s)
	col := int(math.Round(x / cellW))
	switch anchor {
	case chart.AnchorMiddle:
		col -= len(runes) / 2
	case chart.AnchorEnd:
		col -= len(runes)
	}
	row := int(y / cellH)
	for i, r := range runes {
		g.set(col+i, row, r, "")
	}
}

// Plain returns the grid without color, one line per row, trailing spaces
// trimmed
func (g *GridSurface) Plain() string {
	lines := make([]string, g.rows)
	for y, row := range g.cells {
		var b strings.Builder
		for _, c := range row {
			b.WriteRune(c.r)
		}
		lines[y] = strings.TrimRight(b.String(), " ")
	}
	return strings.Join(lines, "\n")
}

// String renders the grid with runs of colored cells styled by lipgloss
func (g *GridSurface) String() string {
	lines := make([]string, g.rows)
	for y, row := range g.cells {
		var b strings.Builder
		for x := 0; x < len(row); {
			color := row[x].color
			end := x
			var run strings.Builder
			for end < len(row) && row[end].color == color {
				run.WriteRune(row[end].r)
				end++
			}
			if color == "" {
				b.WriteString(run.String())
			} else {
				b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(run.String()))
			}
			x = end
		}
		lines[y] = b.String()
	}
	return strings.Join(lines, "\n")
}

func colorHex(c drawing.Color) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}

func clamp(v, n int) int {
	return min(max(v, 0), n-1)
}
