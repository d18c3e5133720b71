// Package models defines the journal entry and mineral types shared across geomood.
package models

import (
	"time"
	"unicode/utf16"
)

// Entry is a single journal deposit. Every field except GemWisdom is fixed
// when the entry is created.
type Entry struct {
	// ID is the entry's unique identifier. It also seeds the entry's grain placement.
	ID string `json:"id" yaml:"id"`

	// Date is the creation timestamp.
	Date time.Time `json:"date" yaml:"date"`

	// Content is the raw journal text.
	Content string `json:"content" yaml:"content"`

	// MoodScore is in [0,1], 0 = sad, 1 = happy.
	MoodScore float64 `json:"moodScore" yaml:"mood_score"`

	// Thickness is the grain count, equal to ContentLength(Content).
	Thickness int `json:"thickness" yaml:"thickness"`

	MineralType MineralType `json:"mineralType" yaml:"mineral_type"`
	HasGem      bool        `json:"hasGem" yaml:"has_gem"`

	// GemWisdom is the appraisal card, filled in the first time a gem is examined.
	GemWisdom *GemWisdom `json:"gemWisdom,omitempty" yaml:"gem_wisdom,omitempty"`
}

// GemWisdom is the "mineral archive card" generated for a gem-bearing entry.
type GemWisdom struct {
	MineralName string `json:"mineralName" jsonschema:"required,description=Fantasy mineral name"`
	Composition string `json:"composition" jsonschema:"required,description=Emotional chemical composition"`
	Quote       string `json:"quote" jsonschema:"required,description=Most representative sentence from the entry"`
	Advice      string `json:"advice" jsonschema:"required,description=Short healing archaeologist note"`
}

// ContentLength returns the length of s in UTF-16 code units. Journals
// written by the browser client measured content this way, and grain counts
// must match for imported journals to settle identically.
func ContentLength(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// CodeUnits returns the UTF-16 code units of s.
func CodeUnits(s string) []uint16 {
	return utf16.Encode([]rune(s))
}
