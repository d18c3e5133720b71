package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/nvandessel/geomood/internal/models"
)

// InMemoryEntryStore implements EntryStore for testing and dry runs.
type InMemoryEntryStore struct {
	mu      sync.RWMutex
	entries []models.Entry // deposit order, oldest first
	index   map[string]int
}

// NewInMemoryEntryStore creates a new in-memory store.
func NewInMemoryEntryStore() *InMemoryEntryStore {
	return &InMemoryEntryStore{
		entries: make([]models.Entry, 0),
		index:   make(map[string]int),
	}
}

// AddEntry adds an entry to the store. Ids must be unique.
func (s *InMemoryEntryStore) AddEntry(ctx context.Context, entry models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		return fmt.Errorf("entry ID is required")
	}
	if _, exists := s.index[entry.ID]; exists {
		return fmt.Errorf("entry already exists: %s", entry.ID)
	}

	s.index[entry.ID] = len(s.entries)
	s.entries = append(s.entries, cloneEntry(entry))
	return nil
}

// GetEntry retrieves an entry by ID. Returns nil if not found.
func (s *InMemoryEntryStore) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, exists := s.index[id]
	if !exists {
		return nil, nil
	}
	e := cloneEntry(s.entries[i])
	return &e, nil
}

// ListEntries returns every entry, newest first.
func (s *InMemoryEntryStore) ListEntries(ctx context.Context) ([]models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Entry, len(s.entries))
	for i, e := range s.entries {
		out[len(s.entries)-1-i] = cloneEntry(e)
	}
	SortNewestFirst(out)
	return out, nil
}

// UpdateGemWisdom stores the appraisal card for an entry.
func (s *InMemoryEntryStore) UpdateGemWisdom(ctx context.Context, id string, wisdom models.GemWisdom) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, exists := s.index[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.entries[i].GemWisdom = &wisdom
	return nil
}

// DeleteEntry removes an entry.
func (s *InMemoryEntryStore) DeleteEntry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, exists := s.index[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.entries); j++ {
		s.index[s.entries[j].ID] = j
	}
	return nil
}

// Sync is a no-op for the in-memory store.
func (s *InMemoryEntryStore) Sync(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryEntryStore) Close() error {
	return nil
}

func cloneEntry(e models.Entry) models.Entry {
	if e.GemWisdom != nil {
		w := *e.GemWisdom
		e.GemWisdom = &w
	}
	return e
}
