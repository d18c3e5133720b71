// Package journal ties the entry store, classifier, simulation and gem
// appraiser together into the operations geomood exposes.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/geomood/internal/classify"
	"github.com/nvandessel/geomood/internal/constants"
	"github.com/nvandessel/geomood/internal/llm"
	"github.com/nvandessel/geomood/internal/logging"
	"github.com/nvandessel/geomood/internal/models"
	"github.com/nvandessel/geomood/internal/sanitize"
	"github.com/nvandessel/geomood/internal/sediment"
	"github.com/nvandessel/geomood/internal/store"
)

var (
	// ErrEmptyContent is returned when an entry has no text after sanitization.
	ErrEmptyContent = errors.New("entry content is empty")

	// ErrMoodRange is returned for mood scores outside [0,1].
	ErrMoodRange = errors.New("mood score must be between 0 and 1")

	// ErrNoGem is returned when appraising an entry that holds no gem.
	ErrNoGem = errors.New("entry holds no gem")

	// ErrNotFound is returned for unknown entry ids.
	ErrNotFound = store.ErrNotFound
)

// Options configures a Service. Zero fields get defaults.
type Options struct {
	// Columns is the world width. Defaults to constants.LogicalColumns.
	Columns int

	// Labeler formats date markers. Defaults to sediment.DefaultLabeler.
	Labeler sediment.Labeler

	// Classifier decides minerals and gems. Defaults to classify.New(nil).
	Classifier *classify.Classifier

	// Appraiser writes gem cards. Defaults to the fallback appraiser.
	Appraiser llm.Appraiser

	Logger    *slog.Logger
	Decisions *logging.DecisionLogger

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// Service runs journal operations against an EntryStore.
type Service struct {
	store      store.EntryStore
	columns    int
	labeler    sediment.Labeler
	classifier *classify.Classifier
	appraiser  llm.Appraiser
	logger     *slog.Logger
	decisions  *logging.DecisionLogger
	now        func() time.Time
	newID      func() string
}

// New creates a Service over s.
func New(s store.EntryStore, opts Options) *Service {
	svc := &Service{
		store:      s,
		columns:    opts.Columns,
		labeler:    opts.Labeler,
		classifier: opts.Classifier,
		appraiser:  opts.Appraiser,
		logger:     opts.Logger,
		decisions:  opts.Decisions,
		now:        opts.Now,
		newID:      opts.NewID,
	}
	if svc.columns <= 0 {
		svc.columns = constants.LogicalColumns
	}
	if svc.labeler == nil {
		svc.labeler = sediment.DefaultLabeler
	}
	if svc.classifier == nil {
		svc.classifier = classify.New(nil)
	}
	if svc.appraiser == nil {
		svc.appraiser = llm.NewFallbackAppraiser()
	}
	if svc.logger == nil {
		svc.logger = logging.Discard()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.newID == nil {
		svc.newID = uuid.NewString
	}
	return svc
}

// Columns returns the world width used for Core.
func (s *Service) Columns() int {
	return s.columns
}

// Store returns the underlying entry store.
func (s *Service) Store() store.EntryStore {
	return s.store
}

// Decisions returns the decision logger, which may be nil.
func (s *Service) Decisions() *logging.DecisionLogger {
	return s.decisions
}

// Deposit records a new journal entry.
func (s *Service) Deposit(ctx context.Context, content string, mood float64) (*models.Entry, error) {
	if math.IsNaN(mood) || mood < 0 || mood > 1 {
		return nil, fmt.Errorf("%w, got %v", ErrMoodRange, mood)
	}
	content = sanitize.SanitizeEntryContent(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	entry := models.Entry{
		ID:        s.newID(),
		Date:      s.now(),
		Content:   content,
		MoodScore: mood,
	}
	s.classifier.Classify(&entry)

	if err := s.store.AddEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("storing entry: %w", err)
	}

	s.logger.Debug("entry deposited",
		"id", entry.ID,
		"mineral", entry.MineralType,
		"thickness", entry.Thickness,
		"has_gem", entry.HasGem)
	s.decisions.LogDeposit(&entry)

	return &entry, nil
}

// Entries lists every entry, newest first.
func (s *Service) Entries(ctx context.Context) ([]models.Entry, error) {
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return entries, nil
}

// Entry returns the entry with id, or ErrNotFound.
func (s *Service) Entry(ctx context.Context, id string) (*models.Entry, error) {
	entry, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting entry: %w", err)
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entry, nil
}

// Core is a simulated core together with the entries it was built from.
type Core struct {
	sediment.Result
	Columns int            `json:"columns"`
	Entries []models.Entry `json:"-"`
}

// EntryAt returns the entry whose grain sits at (column, row).
func (c *Core) EntryAt(column, row int) (*models.Entry, bool) {
	g, ok := c.GrainAt(column, row)
	if !ok {
		return nil, false
	}
	for i := range c.Entries {
		if c.Entries[i].ID == g.EntryID {
			return &c.Entries[i], true
		}
	}
	return nil, false
}

// Core simulates the stored journal.
func (s *Service) Core(ctx context.Context) (*Core, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}

	result := sediment.Simulate(entries, sediment.Options{
		Columns: s.columns,
		Labeler: s.labeler,
	})

	s.decisions.LogCore(logging.CoreSummary{
		Entries:   len(entries),
		Columns:   s.columns,
		Grains:    len(result.Grains),
		MaxHeight: result.MaxHeight,
		Gems:      len(result.Gems),
		Dates:     len(result.DateMarkers),
	})

	return &Core{Result: result, Columns: s.columns, Entries: entries}, nil
}

// Gems lists the gem-bearing entries, newest first.
func (s *Service) Gems(ctx context.Context) ([]models.Entry, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	gems := make([]models.Entry, 0)
	for _, e := range entries {
		if e.HasGem {
			gems = append(gems, e)
		}
	}
	return gems, nil
}

// Surface reports what grows on top of the core.
func (s *Service) Surface(ctx context.Context) (classify.Surface, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return "", err
	}
	return classify.SurfaceState(entries), nil
}

// Appraisal is a gem card and where it came from.
type Appraisal struct {
	Entry   *models.Entry     `json:"entry"`
	Wisdom  *models.GemWisdom `json:"wisdom"`
	Outcome string            `json:"outcome"`
}

// Appraise returns the card for a gem. A stored card is returned as is.
// Otherwise the appraiser is asked and its card is stored. When the
// appraiser is unavailable or fails, the fallback card is returned and
// nothing is stored, so a later call can try again.
func (s *Service) Appraise(ctx context.Context, id string) (*Appraisal, error) {
	entry, err := s.Entry(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entry.HasGem {
		return nil, fmt.Errorf("%w: %s", ErrNoGem, id)
	}

	if entry.GemWisdom != nil {
		s.decisions.LogAppraisal(id, logging.AppraisalCached, entry.GemWisdom, nil)
		return &Appraisal{Entry: entry, Wisdom: entry.GemWisdom, Outcome: logging.AppraisalCached}, nil
	}

	wisdom, appraiseErr := s.appraise(ctx, entry)
	if appraiseErr != nil {
		if !errors.Is(appraiseErr, llm.ErrUnavailable) {
			s.logger.Warn("gem appraisal failed, using fallback card", "id", id, "error", appraiseErr)
		}
		fallback := llm.FallbackWisdom(entry)
		s.decisions.LogAppraisal(id, logging.AppraisalFallback, fallback, appraiseErr)
		return &Appraisal{Entry: entry, Wisdom: fallback, Outcome: logging.AppraisalFallback}, nil
	}

	if err := s.store.UpdateGemWisdom(ctx, id, *wisdom); err != nil {
		return nil, fmt.Errorf("saving gem wisdom: %w", err)
	}
	entry.GemWisdom = wisdom
	s.decisions.LogAppraisal(id, logging.AppraisalModel, wisdom, nil)

	return &Appraisal{Entry: entry, Wisdom: wisdom, Outcome: logging.AppraisalModel}, nil
}

func (s *Service) appraise(ctx context.Context, entry *models.Entry) (*models.GemWisdom, error) {
	if !s.appraiser.Available() {
		return nil, llm.ErrUnavailable
	}
	wisdom, err := s.appraiser.AppraiseGem(ctx, entry)
	if err != nil {
		return nil, err
	}
	if wisdom == nil {
		return nil, errors.New("appraiser returned no card")
	}
	return wisdom, nil
}

// Delete removes an entry.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	s.decisions.LogDelete(id)
	return nil
}
