// Package classify turns a raw journal entry into its stratum: mineral type,
// thickness, and whether it holds a gem. It also reads the surface state
// from the most recent moods.
package classify

import (
	"math/rand/v2"

	"github.com/nvandessel/geomood/internal/constants"
	"github.com/nvandessel/geomood/internal/models"
)

// MineralFor maps a mood score in [0,1] to its mineral.
func MineralFor(score float64) models.MineralType {
	switch {
	case score < 0.2:
		return models.MineralObsidian
	case score < 0.4:
		return models.MineralLapis
	case score < 0.6:
		return models.MineralMoonstone
	case score < 0.8:
		return models.MineralCitrine
	default:
		return models.MineralGold
	}
}

// Thickness is the number of grains content deposits.
func Thickness(content string) int {
	return models.ContentLength(content)
}

// Coin returns a value in [0,1).
type Coin func() float64

// Classifier decides gem placement. The zero value uses math/rand.
type Classifier struct {
	coin Coin
}

// New returns a Classifier that flips coin for extreme-mood entries.
// A nil coin uses math/rand.
func New(coin Coin) *Classifier {
	return &Classifier{coin: coin}
}

// DetermineGem reports whether an entry holds a gem. Long entries always
// do; extreme moods do on a coin flip.
func (c *Classifier) DetermineGem(content string, mood float64) bool {
	if models.ContentLength(content) > constants.LongEntryThreshold {
		return true
	}
	if mood > constants.ExtremeHighMood || mood < constants.ExtremeLowMood {
		return c.flip() > constants.GemChance
	}
	return false
}

// Classify fills the derived fields of entry from its content and mood.
func (c *Classifier) Classify(entry *models.Entry) {
	entry.MineralType = MineralFor(entry.MoodScore)
	entry.Thickness = Thickness(entry.Content)
	entry.HasGem = c.DetermineGem(entry.Content, entry.MoodScore)
}

func (c *Classifier) flip() float64 {
	if c == nil || c.coin == nil {
		return rand.Float64()
	}
	return c.coin()
}

// Surface is what grows on top of the core.
type Surface string

const (
	SurfaceBarren Surface = "BARREN"
	SurfaceHouse  Surface = "HOUSE"
	SurfaceFlower Surface = "FLOWER"
)

// SurfaceState reads the surface from the newest entries. Entries are
// given newest first.
func SurfaceState(entries []models.Entry) Surface {
	n := constants.SurfaceWindow
	if len(entries) < n {
		return SurfaceBarren
	}
	sum := 0.0
	for _, e := range entries[:n] {
		sum += e.MoodScore
	}
	avg := sum / float64(n)

	switch {
	case avg > 0.6:
		return SurfaceHouse
	case avg < 0.3:
		return SurfaceFlower
	default:
		return SurfaceBarren
	}
}
