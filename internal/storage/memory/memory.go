// Package memory is an in-process credential and history store used for
// development and tests. Data is lost on restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"budgetadvisor/internal/core"
)

type Store struct {
	mu      sync.Mutex
	users   map[string]core.UserRecord // keyed by lower-cased username
	entries []core.HistoryEntry
	nextUID int64
	now     func() time.Time
}

func New() *Store {
	return &Store{
		users: make(map[string]core.UserRecord),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) CreateUser(_ context.Context, username, passwordHash string) (core.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(username)
	if _, ok := s.users[key]; ok {
		return core.Identity{}, core.ErrUserExists
	}
	s.nextUID++
	rec := core.UserRecord{
		Identity:     core.Identity{UserID: s.nextUID, Username: username},
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}
	s.users[key] = rec
	return rec.Identity, nil
}

func (s *Store) UserByUsername(_ context.Context, username string) (core.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[strings.ToLower(username)]
	if !ok {
		return core.UserRecord{}, core.ErrUserNotFound
	}
	return rec, nil
}

func (s *Store) AppendHistory(_ context.Context, id core.Identity, p core.FinancialProfile, adviceText string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := core.HistoryEntry{
		ID:         int64(len(s.entries) + 1),
		UserID:     id.UserID,
		Username:   id.Username,
		Profile:    p,
		AdviceText: adviceText,
		CreatedAt:  s.now(),
	}
	s.entries = append(s.entries, e)
	return e.ID, nil
}

// RecentHistory returns the user's entries newest first. Ties on CreatedAt
// fall back to insertion order.
func (s *Store) RecentHistory(_ context.Context, id core.Identity, limit int) ([]core.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.HistoryEntry{}
	for _, e := range s.entries {
		if e.UserID == id.UserID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit < 0 {
		limit = 0
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) HistoryEntry(_ context.Context, entryID int64) (core.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID < 1 || entryID > int64(len(s.entries)) {
		return core.HistoryEntry{}, core.ErrEntryNotFound
	}
	return s.entries[entryID-1], nil
}

func (s *Store) PendingExport(_ context.Context, limit int) ([]core.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.HistoryEntry
	for _, e := range s.entries {
		if len(out) >= limit {
			break
		}
		if e.ExportedAt == nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) ClaimExport(_ context.Context, entryID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID < 1 || entryID > int64(len(s.entries)) {
		return false, core.ErrEntryNotFound
	}
	if s.entries[entryID-1].ExportedAt != nil {
		return false, nil
	}
	t := s.now()
	s.entries[entryID-1].ExportedAt = &t
	return true, nil
}

func (s *Store) ReleaseExport(_ context.Context, entryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID < 1 || entryID > int64(len(s.entries)) {
		return core.ErrEntryNotFound
	}
	s.entries[entryID-1].ExportedAt = nil
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
