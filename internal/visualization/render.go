package visualization

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/nvandessel/geomood/internal/models"
	"github.com/nvandessel/geomood/internal/sediment"
)

// Format specifies the output format for core rendering.
type Format string

const (
	FormatASCII Format = "ascii"
	FormatSVG   Format = "svg"
	FormatJSON  Format = "json"
	FormatHTML  Format = "html"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatASCII, FormatSVG, FormatJSON, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (valid: ascii, svg, json, html)", s)
	}
}

const (
	shadeFill      = "rgba(0,0,0,0.1)"
	dateLineStroke = "#ffffff15"
	dateLabelFill  = "#6d4c41"
	dateLabelText  = "#ffcc80"
)

// RenderSVG draws the core on an SVG canvas sized by l.
func RenderSVG(w io.Writer, res sediment.Result, l Layout) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`+"\n",
		l.Width, l.Height, l.Width, l.Height)
	fmt.Fprintf(bw, `<rect width="%d" height="%d" fill="%s"/>`+"\n", l.Width, l.Height, Background)

	half := l.GrainPx / 2
	bw.WriteString(`<g class="grains">` + "\n")
	for _, g := range res.Grains {
		r := l.GrainRect(g.Column, g.Row)
		fmt.Fprintf(bw, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s" data-entry="%s"/>`,
			r.X, r.Y, r.W, r.H, g.Color, escape(g.EntryID))
		if half > 0 {
			fmt.Fprintf(bw, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`,
				r.X+half, r.Y+half, half, half, shadeFill)
		}
		bw.WriteByte('\n')
	}
	bw.WriteString("</g>\n")

	bw.WriteString(`<g class="dates">` + "\n")
	for _, m := range res.DateMarkers {
		y := l.DateLineY(m.Row)
		fmt.Fprintf(bw, `<line x1="0" y1="%d" x2="%d" y2="%d" stroke="%s"/>`, y, l.Width, y, dateLineStroke)
		labelY := l.DateLabelY(m.Row)
		fmt.Fprintf(bw, `<rect x="8" y="%d" width="%d" height="20" fill="%s"/>`, labelY, 12+7*len(m.Date), dateLabelFill)
		fmt.Fprintf(bw, `<text x="14" y="%d" font-family="monospace" font-size="10" fill="%s">%s</text>`+"\n",
			labelY+14, dateLabelText, escape(m.Date))
	}
	bw.WriteString("</g>\n")

	bw.WriteString(`<g class="gems">` + "\n")
	for _, gem := range res.Gems {
		r := l.GemRect(gem.Column, gem.Row)
		cx, cy := r.X+r.W/2, r.Y+r.H/2
		q := r.W / 4
		p := gem.Mineral.Palette()
		fmt.Fprintf(bw, `<polygon points="%d,%d %d,%d %d,%d %d,%d" fill="%s" stroke="%s" data-gem="%s"><title>挖掘宝石</title></polygon>`+"\n",
			cx, cy-q, cx+q, cy, cx, cy+q, cx-q, cy, p.Highlight, p.Dark, escape(gem.EntryID))
	}
	bw.WriteString("</g>\n</svg>\n")

	return bw.Flush()
}

// asciiGlyphs gives each mineral a character, darkest to brightest.
var asciiGlyphs = map[models.MineralType]rune{
	models.MineralObsidian:  '#',
	models.MineralLapis:     '%',
	models.MineralMoonstone: 'o',
	models.MineralSandstone: ':',
	models.MineralCitrine:   '+',
	models.MineralGold:      '*',
}

const gemGlyph = '@'

// RenderASCII draws the core as text, one character per grain, top row
// first. Date markers are drawn as rules below the rows they close.
func RenderASCII(w io.Writer, res sediment.Result) error {
	columns := len(res.Skyline)
	bw := bufio.NewWriter(w)

	grid := make([][]rune, res.MaxHeight)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", columns))
	}
	for _, g := range res.Grains {
		glyph := '?'
		if m, _, ok := models.LookupColor(g.Color); ok {
			glyph = asciiGlyphs[m]
		}
		grid[g.Row][g.Column] = glyph
	}
	for _, gem := range res.Gems {
		grid[gem.Row][gem.Column] = gemGlyph
	}

	markers := make(map[int][]string)
	for _, m := range res.DateMarkers {
		markers[m.Row] = append(markers[m.Row], m.Date)
	}

	rule := strings.Repeat("-", columns)
	for r := res.MaxHeight; r >= 0; r-- {
		if r < res.MaxHeight {
			fmt.Fprintf(bw, "|%s|\n", string(grid[r]))
		}
		for _, date := range markers[r] {
			fmt.Fprintf(bw, "+%s+ %s\n", rule, date)
		}
	}
	fmt.Fprintf(bw, "=%s=\n", strings.Repeat("=", columns))

	return bw.Flush()
}

func escape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
