package llm

import (
	"context"

	"github.com/nvandessel/geomood/internal/constants"
	"github.com/nvandessel/geomood/internal/models"
	"github.com/nvandessel/geomood/internal/sanitize"
)

// Fallback card text, shown when no model can appraise a gem.
const (
	FallbackMineralName = "未知结晶"
	FallbackComposition = "100% 纯粹的神秘"
	FallbackAdvice      = "这块石头沉默不语，但它记得一切。"
)

// FallbackWisdom returns the placeholder card for entry. It quotes the
// first constants.FallbackQuoteLen units of the content.
func FallbackWisdom(entry *models.Entry) *models.GemWisdom {
	return &models.GemWisdom{
		MineralName: FallbackMineralName,
		Composition: FallbackComposition,
		Quote:       sanitize.TruncateUnits(entry.Content, constants.FallbackQuoteLen) + "...",
		Advice:      FallbackAdvice,
	}
}

// FallbackAppraiser is used when no provider is configured. It never
// produces a card itself; callers show FallbackWisdom instead.
type FallbackAppraiser struct{}

// NewFallbackAppraiser creates a new FallbackAppraiser.
func NewFallbackAppraiser() *FallbackAppraiser {
	return &FallbackAppraiser{}
}

// AppraiseGem always returns ErrUnavailable.
func (a *FallbackAppraiser) AppraiseGem(ctx context.Context, entry *models.Entry) (*models.GemWisdom, error) {
	return nil, ErrUnavailable
}

// Available returns false because this is a fallback appraiser.
func (a *FallbackAppraiser) Available() bool {
	return false
}
