package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"budgetadvisor/internal/advisor"
	"budgetadvisor/internal/cache"
	"budgetadvisor/internal/core"
)

// ErrInvalidProfile wraps a core.FieldError from profile validation.
var ErrInvalidProfile = errors.New("invalid financial profile")

// AdviceResult is the outcome of one evaluation.
type AdviceResult struct {
	Advice  []advisor.Advice
	Text    string // joined messages, or advisor.HealthyMessage
	Healthy bool
	EntryID int64 // zero when not saved
	Saved   bool
}

// Messages returns the lines to display.
func (r AdviceResult) Messages() []string {
	if r.Healthy {
		return []string{advisor.HealthyMessage}
	}
	return advisor.Messages(r.Advice)
}

type cachedHistory struct {
	limit   int
	entries []core.HistoryEntry
}

// AdviceService runs the advisor and records each run in history.
// The history store is the source of truth; publishing is best effort.
type AdviceService struct {
	engine    *advisor.Engine
	history   HistoryStore
	publisher Publisher
	cache     *cache.LRUCache[cachedHistory]

	// generations counts appends per user. A history read only fills the
	// cache if no append happened while it was in flight.
	genMu       sync.Mutex
	generations map[int64]uint64
}

func NewAdviceService(engine *advisor.Engine, history HistoryStore, publisher Publisher) *AdviceService {
	if engine == nil {
		engine = advisor.NewEngine()
	}
	return &AdviceService{
		engine:      engine,
		history:     history,
		publisher:   publisher,
		cache:       cache.NewLRUCache[cachedHistory](1000, 5*time.Minute),
		generations: make(map[int64]uint64),
	}
}

// CacheCleaner exposes the recent-history cache to a cache.Manager.
func (s *AdviceService) CacheCleaner() cache.Cleaner {
	return s.cache
}

func (s *AdviceService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// Rules returns the catalog the engine evaluates.
func (s *AdviceService) Rules() []advisor.Rule {
	return s.engine.Rules()
}

// Advise validates and evaluates p. For a logged-in identity the run is
// appended to history; a storage or publish failure is logged and the
// advice is still returned.
func (s *AdviceService) Advise(ctx context.Context, id core.Identity, p core.FinancialProfile) (AdviceResult, error) {
	if err := p.Validate(); err != nil {
		return AdviceResult{}, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	advice := s.engine.Evaluate(p)
	res := AdviceResult{
		Advice:  advice,
		Text:    advisor.JoinMessages(advice),
		Healthy: len(advice) == 0,
	}

	if id.IsZero() || s.history == nil {
		return res, nil
	}

	entryID, err := s.history.AppendHistory(ctx, id, p, res.Text)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to save advice history",
			"component", "history", "user_id", id.UserID, "error", err)
		return res, nil
	}
	res.EntryID = entryID
	res.Saved = true
	s.invalidate(id)

	if err := s.publish(ctx, entryID, id.UserID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish advice recorded message",
			"component", "amqp", "entry_id", entryID, "error", err)
	}
	return res, nil
}

// History returns the user's most recent runs, newest first.
func (s *AdviceService) History(ctx context.Context, id core.Identity, limit int) ([]core.HistoryEntry, error) {
	if id.IsZero() {
		return nil, ErrInvalidCredentials
	}
	key := cacheKey(id)
	if c, ok := s.cache.Get(key); ok && c.limit == limit {
		return c.entries, nil
	}

	gen := s.generation(id)
	entries, err := s.history.RecentHistory(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("recent history: %w", err)
	}
	s.fill(id, gen, cachedHistory{limit: limit, entries: entries})
	return entries, nil
}

func (s *AdviceService) invalidate(id core.Identity) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.generations[id.UserID]++
	s.cache.Delete(cacheKey(id))
}

func (s *AdviceService) generation(id core.Identity) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[id.UserID]
}

// fill caches v unless an append bumped the user's generation since gen
// was read.
func (s *AdviceService) fill(id core.Identity, gen uint64, v cachedHistory) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generations[id.UserID] != gen {
		return
	}
	s.cache.Set(cacheKey(id), v)
}

func (s *AdviceService) publish(ctx context.Context, entryID, userID int64) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No publisher configured, skipping advice recorded message")
		return nil
	}
	return s.publisher.PublishAdviceRecorded(ctx, entryID, userID)
}

func cacheKey(id core.Identity) string {
	return strconv.FormatInt(id.UserID, 10)
}
