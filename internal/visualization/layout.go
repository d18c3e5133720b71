// Package visualization renders simulated cores as SVG, ASCII and an
// interactive local web page.
package visualization

import (
	"github.com/nvandessel/geomood/internal/constants"
)

// Canvas geometry.
const (
	BottomPadding = 50
	TopPadding    = 100

	// DefaultMinHeight is the shortest canvas drawn, so a young core still
	// leaves room for the surface.
	DefaultMinHeight = 480

	gemSpriteSize   = 32
	gemSpriteOffset = 8
	dateLabelOffset = 10
)

// Background is the earth color behind the grains.
const Background = "#1a0f0a"

// Rect is a pixel rectangle with its origin at the top left.
type Rect struct {
	X, Y, W, H int
}

// Layout maps simulation coordinates to canvas pixels. Row 0 sits on the
// bottom padding and rows grow upward.
type Layout struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	GrainPx int `json:"grainPx"`
	Columns int `json:"columns"`
	OriginY int `json:"originY"`
}

// NewLayout sizes a canvas of the given width for a core maxHeight rows
// tall. Grains are floor(width/columns) pixels, at least one.
func NewLayout(width, minHeight, columns, maxHeight int) Layout {
	if columns <= 0 {
		columns = constants.LogicalColumns
	}
	if width <= 0 {
		width = columns * constants.GrainSize
	}
	grain := width / columns
	if grain < 1 {
		grain = 1
	}

	height := maxHeight*grain + BottomPadding + TopPadding
	if height < minHeight {
		height = minHeight
	}

	return Layout{
		Width:   width,
		Height:  height,
		GrainPx: grain,
		Columns: columns,
		OriginY: height - BottomPadding,
	}
}

// GrainRect returns the pixel rectangle of the grain at (column, row).
func (l Layout) GrainRect(column, row int) Rect {
	g := l.GrainPx
	return Rect{X: column * g, Y: l.OriginY - row*g - g, W: g, H: g}
}

// DateLineY returns the canvas y of a date marker at row.
func (l Layout) DateLineY(row int) int {
	return l.OriginY - row*l.GrainPx
}

// DateLabelY returns the top of a date marker's label.
func (l Layout) DateLabelY(row int) int {
	return l.DateLineY(row) - dateLabelOffset
}

// GemRect returns the sprite rectangle for a gem on the grain at (column, row).
func (l Layout) GemRect(column, row int) Rect {
	r := l.GrainRect(column, row)
	return Rect{X: r.X - gemSpriteOffset, Y: r.Y - gemSpriteOffset, W: gemSpriteSize, H: gemSpriteSize}
}

// HitTest converts a canvas pixel to (column, row). The result may lie
// outside the world; callers look it up with GrainAt.
func (l Layout) HitTest(x, y int) (column, row int) {
	return floorDiv(x, l.GrainPx), floorDiv(l.OriginY-y, l.GrainPx)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
