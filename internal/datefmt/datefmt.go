// Package datefmt formats the calendar labels attached to date markers.
package datefmt

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Layouts for the supported date orders.
const (
	LayoutYMD = "2006/1/2"
	LayoutMDY = "1/2/2006"
	LayoutDMY = "02/01/2006"
	LayoutDE  = "2.1.2006"
	LayoutISO = "2006-01-02"
)

// DefaultLocale is the locale the journal was first written for.
const DefaultLocale = "zh-CN"

var supportedTags = []language.Tag{
	language.MustParse("zh-CN"),
	language.Japanese,
	language.Korean,
	language.AmericanEnglish,
	language.BritishEnglish,
	language.French,
	language.Spanish,
	language.Italian,
	language.German,
}

var supportedLayouts = []string{
	LayoutYMD,
	LayoutYMD,
	LayoutYMD,
	LayoutMDY,
	LayoutDMY,
	LayoutDMY,
	LayoutDMY,
	LayoutDMY,
	LayoutDE,
}

var tagMatcher = language.NewMatcher(supportedTags)

// LayoutFor returns the time layout used for locale. Locales that match
// none of the supported tags get the ISO layout.
func LayoutFor(locale string) (string, error) {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return "", fmt.Errorf("parsing locale %q: %w", locale, err)
	}
	_, idx, conf := tagMatcher.Match(tag)
	if conf == language.No {
		return LayoutISO, nil
	}
	return supportedLayouts[idx], nil
}

// LoadLocation resolves a time zone name. Empty and "Local" mean the
// process's local zone.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", name, err)
	}
	return loc, nil
}

// Formatter renders date labels in a fixed layout and zone.
type Formatter struct {
	layout string
	loc    *time.Location
}

// New builds a Formatter for locale and timezone. A non-empty layout
// overrides the locale's layout.
func New(locale, timezone, layout string) (*Formatter, error) {
	if layout == "" {
		var err error
		layout, err = LayoutFor(locale)
		if err != nil {
			return nil, err
		}
	}
	loc, err := LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return &Formatter{layout: layout, loc: loc}, nil
}

// Label formats t as a calendar date.
func (f *Formatter) Label(t time.Time) string {
	return t.In(f.loc).Format(f.layout)
}

// Layout returns the layout in use.
func (f *Formatter) Layout() string {
	return f.layout
}

// Location returns the zone labels are computed in.
func (f *Formatter) Location() *time.Location {
	return f.loc
}
