package logging

import (
	"github.com/nvandessel/geomood/internal/models"
)

// Event names written to decisions.jsonl.
const (
	EventDeposit   = "deposit"
	EventAppraisal = "appraisal"
	EventCore      = "core"
	EventDelete    = "delete"
	EventRestore   = "restore"
)

// Appraisal outcomes.
const (
	AppraisalCached   = "cached"
	AppraisalModel    = "model"
	AppraisalFallback = "fallback"
)

// LogDeposit records how an entry was classified. Content is only
// included at trace level.
func (dl *DecisionLogger) LogDeposit(e *models.Entry) {
	if dl == nil {
		return
	}
	event := map[string]any{
		"event":     EventDeposit,
		"entry_id":  e.ID,
		"mood":      e.MoodScore,
		"mineral":   e.MineralType,
		"thickness": e.Thickness,
		"has_gem":   e.HasGem,
	}
	if dl.Trace() {
		event["content"] = e.Content
	}
	dl.Log(event)
}

// LogAppraisal records where a gem's card came from.
func (dl *DecisionLogger) LogAppraisal(entryID, outcome string, w *models.GemWisdom, err error) {
	if dl == nil {
		return
	}
	event := map[string]any{
		"event":    EventAppraisal,
		"entry_id": entryID,
		"outcome":  outcome,
	}
	if err != nil {
		event["error"] = err.Error()
	}
	if w != nil {
		event["mineral_name"] = w.MineralName
		if dl.Trace() {
			event["wisdom"] = w
		}
	}
	dl.Log(event)
}

// CoreSummary describes one simulation run.
type CoreSummary struct {
	Entries   int
	Columns   int
	Grains    int
	MaxHeight int
	Gems      int
	Dates     int
}

// LogCore records the shape of a rendered core.
func (dl *DecisionLogger) LogCore(s CoreSummary) {
	dl.Log(map[string]any{
		"event":      EventCore,
		"entries":    s.Entries,
		"columns":    s.Columns,
		"grains":     s.Grains,
		"max_height": s.MaxHeight,
		"gems":       s.Gems,
		"dates":      s.Dates,
	})
}

// LogDelete records an entry removal.
func (dl *DecisionLogger) LogDelete(entryID string) {
	dl.Log(map[string]any{"event": EventDelete, "entry_id": entryID})
}

// LogRestore records a backup restore.
func (dl *DecisionLogger) LogRestore(path, mode string, added, skipped int) {
	dl.Log(map[string]any{
		"event":   EventRestore,
		"path":    path,
		"mode":    mode,
		"added":   added,
		"skipped": skipped,
	})
}
