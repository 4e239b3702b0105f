package store

import (
	"context"
	"sync"
	"time"

	"bloodlink/internal/match/models"
	"bloodlink/pkg/platform/sentinel"
)

// InMemorySessions keeps search sessions in process memory until they expire.
type InMemorySessions struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	now      func() time.Time
}

type MemoryOption func(*InMemorySessions)

// WithClock overrides the clock used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *InMemorySessions) {
		if now != nil {
			s.now = now
		}
	}
}

func NewInMemorySessions(opts ...MemoryOption) *InMemorySessions {
	s := &InMemorySessions{
		sessions: make(map[string]*models.Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores a copy of session. A session already past ExpiresAt is not
// stored and yields ErrNotFound.
func (s *InMemorySessions) Save(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.now().Before(session.ExpiresAt) {
		delete(s.sessions, session.ID)
		return sentinel.ErrNotFound
	}
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *InMemorySessions) Find(_ context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !s.now().Before(session.ExpiresAt) {
		delete(s.sessions, id)
		return nil, sentinel.ErrNotFound
	}
	return cloneSession(session), nil
}

// Update applies fn to the stored session under the store lock. An error from
// fn leaves the stored session unchanged.
func (s *InMemorySessions) Update(_ context.Context, id string, fn func(*models.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !s.now().Before(session.ExpiresAt) {
		delete(s.sessions, id)
		return sentinel.ErrNotFound
	}
	updated := cloneSession(session)
	if err := fn(updated); err != nil {
		return err
	}
	s.sessions[id] = updated
	return nil
}

func (s *InMemorySessions) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.sessions, id)
	if !s.now().Before(session.ExpiresAt) {
		return sentinel.ErrNotFound
	}
	return nil
}

// PurgeExpired drops expired sessions and reports how many were removed.
func (s *InMemorySessions) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func cloneSession(s *models.Session) *models.Session {
	c := *s
	c.Matches = append([]models.Match(nil), s.Matches...)
	return &c
}
