// Package constants provides named constants used throughout the geomood codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// World geometry constants
const (
	// LogicalColumns is how many grains wide the world is.
	LogicalColumns = 60

	// GrainSize is the visual size of one grain in CSS pixels when no
	// rendering surface width is known.
	GrainSize = 6
)

// Storage constants
const (
	// DataDirName is the per-project data directory.
	DataDirName = ".geomood"

	// DatabaseFileName is the SQLite journal inside DataDirName.
	DatabaseFileName = "geomood.db"
)

// Classification thresholds
const (
	// LongEntryThreshold is the content length above which an entry always holds a gem.
	LongEntryThreshold = 80

	// ExtremeHighMood and ExtremeLowMood bound the moods that may hold a gem by chance.
	ExtremeHighMood = 0.9
	ExtremeLowMood  = 0.15

	// GemChance is the coin threshold an extreme-mood entry must beat.
	GemChance = 0.5

	// SurfaceWindow is the number of newest entries averaged for the surface state.
	SurfaceWindow = 3
)

// Appraisal constants
const (
	// MaxPromptExcerptLen caps the entry text forwarded to the appraiser.
	MaxPromptExcerptLen = 800

	// FallbackQuoteLen is how much of the content the fallback card quotes.
	FallbackQuoteLen = 20
)
