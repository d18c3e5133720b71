package mcp

import (
	"time"

	"github.com/nvandessel/geomood/internal/models"
)

// DepositInput defines the input for geomood_deposit tool.
type DepositInput struct {
	Content string  `json:"content" jsonschema:"The journal entry text"`
	Mood    float64 `json:"mood" jsonschema:"Mood score from 0.0 (low) to 1.0 (high)"`
}

// DepositOutput defines the output for geomood_deposit tool.
type DepositOutput struct {
	Entry   EntryItem `json:"entry" jsonschema:"The deposited entry"`
	Message string    `json:"message" jsonschema:"Human-readable result message"`
}

// EntryItem provides a list view of an entry.
type EntryItem struct {
	ID          string             `json:"id"`
	Date        time.Time          `json:"date"`
	Content     string             `json:"content"`
	MoodScore   float64            `json:"mood_score"`
	Thickness   int                `json:"thickness"`
	MineralType models.MineralType `json:"mineral_type"`
	Mineral     string             `json:"mineral"`
	HasGem      bool               `json:"has_gem"`
	Appraised   bool               `json:"appraised"`
}

// ListInput defines the input for geomood_list tool.
type ListInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of newest entries to return (default: all)"`
}

// ListOutput defines the output for geomood_list tool.
type ListOutput struct {
	Entries []EntryItem `json:"entries" jsonschema:"Entries, newest first"`
	Count   int         `json:"count" jsonschema:"Number of entries returned"`
	Total   int         `json:"total" jsonschema:"Number of entries in the journal"`
}

// CoreInput defines the input for geomood_core tool.
type CoreInput struct {
	Format string `json:"format,omitempty" jsonschema:"Output format: 'ascii', 'svg', or 'json' (default: 'ascii')"`
	Width  int    `json:"width,omitempty" jsonschema:"Canvas width in pixels for svg output (default: columns * 6)"`
}

// CoreOutput defines the output for geomood_core tool.
type CoreOutput struct {
	Format    string `json:"format" jsonschema:"Format of the rendered core"`
	Core      string `json:"core" jsonschema:"The rendered core"`
	Entries   int    `json:"entries" jsonschema:"Number of deposited entries"`
	Grains    int    `json:"grains" jsonschema:"Number of placed grains"`
	MaxHeight int    `json:"max_height" jsonschema:"Height of the tallest column"`
	Gems      int    `json:"gems" jsonschema:"Number of gems in the core"`
	Dates     int    `json:"dates" jsonschema:"Number of date markers"`
}

// GemsInput defines the input for geomood_gems tool.
type GemsInput struct{}

// GemsOutput defines the output for geomood_gems tool.
type GemsOutput struct {
	Gems      []EntryItem `json:"gems" jsonschema:"Gem-bearing entries, newest first"`
	Count     int         `json:"count" jsonschema:"Number of gems"`
	Appraised int         `json:"appraised" jsonschema:"Number of gems with a stored card"`
}

// AppraiseInput defines the input for geomood_appraise tool.
type AppraiseInput struct {
	ID string `json:"id" jsonschema:"ID of a gem-bearing entry"`
}

// AppraiseOutput defines the output for geomood_appraise tool.
type AppraiseOutput struct {
	ID          string `json:"id" jsonschema:"Entry ID"`
	MineralName string `json:"mineral_name" jsonschema:"Poetic name of the gem"`
	Composition string `json:"composition" jsonschema:"What the gem is made of"`
	Quote       string `json:"quote" jsonschema:"A quote drawn from the entry"`
	Advice      string `json:"advice" jsonschema:"The curator's note"`
	Source      string `json:"source" jsonschema:"Where the card came from: 'cached', 'model', or 'fallback'"`
}

// SurfaceInput defines the input for geomood_surface tool.
type SurfaceInput struct{}

// SurfaceOutput defines the output for geomood_surface tool.
type SurfaceOutput struct {
	Surface string `json:"surface" jsonschema:"Surface state: 'BARREN', 'HOUSE', or 'FLOWER'"`
	Entries int    `json:"entries" jsonschema:"Number of entries considered"`
}

// BackupInput defines the input for geomood_backup tool.
type BackupInput struct {
	OutputPath string `json:"output_path,omitempty" jsonschema:"Output file path (default: ~/.geomood/backups/geomood-backup-TIMESTAMP.json.gz)"`
}

// BackupOutput defines the output for geomood_backup tool.
type BackupOutput struct {
	Path       string `json:"path" jsonschema:"Path to the backup file"`
	EntryCount int    `json:"entry_count" jsonschema:"Number of entries backed up"`
	Version    int    `json:"version" jsonschema:"Backup format version"`
	Compressed bool   `json:"compressed" jsonschema:"Whether the backup is compressed"`
	SizeBytes  int64  `json:"size_bytes" jsonschema:"Size of the backup file in bytes"`
	Message    string `json:"message" jsonschema:"Human-readable result message"`
}

// RestoreInput defines the input for geomood_restore tool.
type RestoreInput struct {
	InputPath string `json:"input_path" jsonschema:"Path to the backup file"`
	Mode      string `json:"mode,omitempty" jsonschema:"Restore mode: 'merge' (skip existing) or 'replace' (clear first) (default: 'merge')"`
}

// RestoreOutput defines the output for geomood_restore tool.
type RestoreOutput struct {
	EntriesRestored int    `json:"entries_restored" jsonschema:"Number of entries restored"`
	EntriesSkipped  int    `json:"entries_skipped" jsonschema:"Number of entries skipped"`
	EntriesRemoved  int    `json:"entries_removed" jsonschema:"Number of entries removed by replace mode"`
	Message         string `json:"message" jsonschema:"Human-readable result message"`
}

func toEntryItem(e models.Entry) EntryItem {
	return EntryItem{
		ID:          e.ID,
		Date:        e.Date,
		Content:     e.Content,
		MoodScore:   e.MoodScore,
		Thickness:   e.Thickness,
		MineralType: e.MineralType,
		Mineral:     e.MineralType.DisplayName(),
		HasGem:      e.HasGem,
		Appraised:   e.GemWisdom != nil,
	}
}
