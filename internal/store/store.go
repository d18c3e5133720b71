// Package store defines the EntryStore interface for persisting journal
// entries, with SQLite and in-memory implementations.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/nvandessel/geomood/internal/models"
)

// ErrNotFound is returned by mutating calls that name a missing entry.
var ErrNotFound = errors.New("entry not found")

// EntryStore persists journal entries.
//
// Lookups of a missing id return (nil, nil). ListEntries returns entries
// newest first, the order the simulation consumes them in.
type EntryStore interface {
	AddEntry(ctx context.Context, entry models.Entry) error
	GetEntry(ctx context.Context, id string) (*models.Entry, error)
	ListEntries(ctx context.Context) ([]models.Entry, error)

	// UpdateGemWisdom attaches an appraisal card to an entry. It is the only
	// mutation an entry ever sees after it is deposited.
	UpdateGemWisdom(ctx context.Context, id string, wisdom models.GemWisdom) error

	DeleteEntry(ctx context.Context, id string) error

	// Persistence
	Sync(ctx context.Context) error
	Close() error
}

// SortNewestFirst orders entries by date, newest first. Entries that share
// a timestamp keep their relative order.
func SortNewestFirst(entries []models.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
}
