package sediment

import (
	"time"

	"github.com/nvandessel/geomood/internal/constants"
	"github.com/nvandessel/geomood/internal/models"
)

// Placement heuristics. These values are part of the output contract:
// changing any of them changes every core ever rendered.
const (
	candidateCount = 3
	maxSlideSteps  = 3
	slideThreshold = 1

	highlightCutoff = 0.9
	lightCutoff     = 0.75
	darkCutoff      = 0.2
)

// Grain is one placed unit of sediment, one per character of entry content.
type Grain struct {
	Column  int    `json:"x"`
	Row     int    `json:"y"` // 0 is the bottom
	Color   string `json:"color"`
	EntryID string `json:"entryId"`
}

// GemMarker marks the grain that holds an entry's gem.
type GemMarker struct {
	Column  int                `json:"x"`
	Row     int                `json:"y"`
	EntryID string             `json:"entryId"`
	Mineral models.MineralType `json:"mineralType"`
}

// DateMarker records the stack height at which the calendar date changes.
type DateMarker struct {
	Row  int    `json:"y"`
	Date string `json:"date"`
}

// Result is the outcome of one simulation run.
type Result struct {
	Grains      []Grain      `json:"grains"`
	Skyline     []int        `json:"skyline"`
	MaxHeight   int          `json:"maxHeight"`
	Gems        []GemMarker  `json:"gemLocations"`
	DateMarkers []DateMarker `json:"dateMarkers"`
}

// Labeler formats the calendar date label for an entry timestamp.
type Labeler interface {
	Label(t time.Time) string
}

// LabelFunc adapts a plain function to Labeler.
type LabelFunc func(t time.Time) string

// Label calls f(t).
func (f LabelFunc) Label(t time.Time) string {
	return f(t)
}

// Options configures a simulation run.
type Options struct {
	// Columns is the world width in grains. Defaults to constants.LogicalColumns.
	Columns int

	// Labeler formats date markers. Defaults to DefaultLabeler.
	Labeler Labeler
}

// DefaultLabeler formats dates as the web client does for its
// default zh-CN locale, in the process's local time zone.
var DefaultLabeler Labeler = LabelFunc(func(t time.Time) string {
	return t.In(time.Local).Format("2006/1/2")
})

// Simulate deposits entries and returns the resulting core. Entries are
// given newest first, the order they are listed in, and are deposited
// oldest first.
func Simulate(entries []models.Entry, opts Options) Result {
	cols := opts.Columns
	if cols <= 0 {
		cols = constants.LogicalColumns
	}
	labeler := opts.Labeler
	if labeler == nil {
		labeler = DefaultLabeler
	}

	total := 0
	for i := range entries {
		total += models.ContentLength(entries[i].Content)
	}

	d := &deposit{
		cols:        cols,
		skyline:     make([]int, cols),
		grains:      make([]Grain, 0, total),
		gems:        []GemMarker{},
		dateMarkers: []DateMarker{},
	}

	lastDate := ""
	for i := len(entries) - 1; i >= 0; i-- {
		entry := &entries[i]

		date := labeler.Label(entry.Date)
		if date != lastDate {
			d.dateMarkers = append(d.dateMarkers, DateMarker{Row: d.maxHeight(), Date: date})
			lastDate = date
		}

		d.depositEntry(entry)
	}

	return Result{
		Grains:      d.grains,
		Skyline:     d.skyline,
		MaxHeight:   d.maxHeight(),
		Gems:        d.gems,
		DateMarkers: d.dateMarkers,
	}
}

// deposit holds the mutable state of a single run.
type deposit struct {
	cols        int
	skyline     []int
	grains      []Grain
	gems        []GemMarker
	dateMarkers []DateMarker
}

func (d *deposit) maxHeight() int {
	m := 0
	for _, h := range d.skyline {
		if h > m {
			m = h
		}
	}
	return m
}

// depositEntry places all grains of one entry and, if it holds a gem,
// attaches the gem to one of them.
func (d *deposit) depositEntry(entry *models.Entry) {
	stream := NewStream(entry.ID)
	palette := entry.MineralType.Palette()
	count := models.ContentLength(entry.Content)

	first := len(d.grains)
	for i := 0; i < count; i++ {
		col := d.settle(d.pickColumn(&stream))
		row := d.skyline[col]
		d.grains = append(d.grains, Grain{
			Column:  col,
			Row:     row,
			Color:   palette.Color(toneFor(stream.Float64())),
			EntryID: entry.ID,
		})
		d.skyline[col]++
	}

	placed := d.grains[first:]
	if entry.HasGem && len(placed) > 0 {
		g := placed[stream.Intn(len(placed))]
		d.gems = append(d.gems, GemMarker{
			Column:  g.Column,
			Row:     g.Row,
			EntryID: entry.ID,
			Mineral: entry.MineralType,
		})
	}
}

// pickColumn draws candidate columns and returns the lowest. The first
// candidate wins ties.
func (d *deposit) pickColumn(stream *Stream) int {
	var candidates [candidateCount]int
	for i := range candidates {
		candidates[i] = stream.Intn(d.cols)
	}

	target := candidates[0]
	minH := d.skyline[target]
	for _, c := range candidates {
		if d.skyline[c] < minH {
			minH = d.skyline[c]
			target = c
		}
	}
	return target
}

// settle lets a grain slide toward a lower neighbor while the drop is
// steeper than slideThreshold. Edge columns are their own missing neighbor.
func (d *deposit) settle(col int) int {
	for step := 0; step < maxSlideSteps; step++ {
		left, right := col, col
		if col > 0 {
			left = col - 1
		}
		if col < d.cols-1 {
			right = col + 1
		}

		h := d.skyline[col]
		leftDelta := h - d.skyline[left]
		rightDelta := h - d.skyline[right]

		switch {
		case leftDelta > slideThreshold && leftDelta >= rightDelta:
			col = left
		case rightDelta > slideThreshold && rightDelta > leftDelta:
			col = right
		default:
			return col
		}
	}
	return col
}

func toneFor(r float64) models.Tone {
	switch {
	case r > highlightCutoff:
		return models.ToneHighlight
	case r > lightCutoff:
		return models.ToneLight
	case r < darkCutoff:
		return models.ToneDark
	default:
		return models.ToneBase
	}
}

// EntryGrains returns the grains belonging to entryID, in placement order.
func (r Result) EntryGrains(entryID string) []Grain {
	var out []Grain
	for _, g := range r.Grains {
		if g.EntryID == entryID {
			out = append(out, g)
		}
	}
	return out
}

// GrainAt returns the grain at (column, row), if any.
func (r Result) GrainAt(column, row int) (Grain, bool) {
	for _, g := range r.Grains {
		if g.Column == column && g.Row == row {
			return g, true
		}
	}
	return Grain{}, false
}
