// Package chart draws categorical distributions as bar or donut charts on a
// 2D drawing surface. Geometry is computed separately from drawing so it can
// be checked without a surface.
package chart

import (
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Kind selects the chart style
type Kind string

const (
	Bar Kind = "bar"
	Pie Kind = "pie"
)

// Palette is cycled by category index
var Palette = []drawing.Color{
	drawing.ColorFromHex("36A2EB"),
	drawing.ColorFromHex("FF6384"),
	drawing.ColorFromHex("FFCE56"),
	drawing.ColorFromHex("4BC0C0"),
	drawing.ColorFromHex("9966FF"),
	drawing.ColorFromHex("FF9F40"),
	drawing.ColorFromHex("C9CBCF"),
	drawing.ColorFromHex("7ED321"),
}

// ColorAt returns the palette color for index i
func ColorAt(i int) drawing.Color {
	return Palette[i%len(Palette)]
}

var (
	background = drawing.ColorWhite
	axisColor  = drawing.ColorFromHex("333333")
	textColor  = drawing.ColorFromHex("333333")
	leaderLine = drawing.ColorFromHex("999999")
)
