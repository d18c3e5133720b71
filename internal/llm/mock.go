package llm

import (
	"context"
	"sync"

	"github.com/nvandessel/geomood/internal/models"
)

// MockAppraiser implements Appraiser for testing purposes.
// It returns a configured card or error and records every call.
type MockAppraiser struct {
	mu sync.Mutex

	// Configured responses
	wisdom    *models.GemWisdom
	err       error
	available bool

	// Call tracking
	Calls []*models.Entry
}

// NewMockAppraiser creates a new MockAppraiser with default settings.
// By default, it is available and returns a fixed card.
func NewMockAppraiser() *MockAppraiser {
	return &MockAppraiser{
		available: true,
		Calls:     make([]*models.Entry, 0),
	}
}

// WithWisdom configures the card returned by AppraiseGem.
func (m *MockAppraiser) WithWisdom(w *models.GemWisdom) *MockAppraiser {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wisdom = w
	return m
}

// WithError configures the error returned by AppraiseGem.
func (m *MockAppraiser) WithError(err error) *MockAppraiser {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithAvailable configures whether Available() returns true or false.
func (m *MockAppraiser) WithAvailable(available bool) *MockAppraiser {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
	return m
}

// AppraiseGem implements Appraiser.AppraiseGem.
func (m *MockAppraiser) AppraiseGem(ctx context.Context, entry *models.Entry) (*models.GemWisdom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, entry)

	if m.err != nil {
		return nil, m.err
	}
	if m.wisdom != nil {
		w := *m.wisdom
		return &w, nil
	}

	// Default response
	return &models.GemWisdom{
		MineralName: "凝固的午后",
		Composition: "50% 平静，50% 期待",
		Quote:       entry.Content,
		Advice:      "慢慢来。",
	}, nil
}

// Available implements Appraiser.Available.
func (m *MockAppraiser) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// CallCount returns the number of times AppraiseGem was called.
func (m *MockAppraiser) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Reset clears all call tracking and resets configured responses.
func (m *MockAppraiser) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wisdom = nil
	m.err = nil
	m.available = true
	m.Calls = make([]*models.Entry, 0)
}
