package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bloodlink/internal/match/models"
	"bloodlink/pkg/platform/sentinel"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type InMemorySessionsSuite struct {
	suite.Suite
	ctx   context.Context
	clock *fakeClock
	store *InMemorySessions
}

func TestInMemorySessionsSuite(t *testing.T) {
	suite.Run(t, new(InMemorySessionsSuite))
}

func (s *InMemorySessionsSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	s.store = NewInMemorySessions(WithClock(s.clock.Now))
}

func (s *InMemorySessionsSuite) session(id string, ttl time.Duration) *models.Session {
	return &models.Session{
		ID:        id,
		Matches:   []models.Match{{DonorID: 1}, {DonorID: 2}},
		CreatedAt: s.clock.Now(),
		ExpiresAt: s.clock.Now().Add(ttl),
	}
}

func (s *InMemorySessionsSuite) TestSaveAndFind() {
	s.Run("returns a copy of the saved session", func() {
		saved := s.session("a", time.Minute)
		s.Require().NoError(s.store.Save(s.ctx, saved))

		got, err := s.store.Find(s.ctx, "a")
		s.Require().NoError(err)
		s.Equal(saved, got)

		got.Matches[0].DonorID = 99
		again, err := s.store.Find(s.ctx, "a")
		s.Require().NoError(err)
		s.Equal(int64(1), again.Matches[0].DonorID)
	})

	s.Run("unknown id is ErrNotFound", func() {
		_, err := s.store.Find(s.ctx, "missing")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemorySessionsSuite) TestExpiry() {
	s.Require().NoError(s.store.Save(s.ctx, s.session("short", time.Minute)))
	s.Require().NoError(s.store.Save(s.ctx, s.session("long", time.Hour)))

	s.clock.Advance(2 * time.Minute)

	_, err := s.store.Find(s.ctx, "short")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.Find(s.ctx, "long")
	s.NoError(err)

	s.clock.Advance(2 * time.Hour)
	s.Equal(1, s.store.PurgeExpired())
}

func (s *InMemorySessionsSuite) TestDelete() {
	s.Require().NoError(s.store.Save(s.ctx, s.session("d", time.Minute)))
	s.Require().NoError(s.store.Delete(s.ctx, "d"))
	s.ErrorIs(s.store.Delete(s.ctx, "d"), sentinel.ErrNotFound)

	_, err := s.store.Find(s.ctx, "d")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemorySessionsSuite) TestSaveExpiredSession() {
	err := s.store.Save(s.ctx, s.session("stale", -time.Second))
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.Find(s.ctx, "stale")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemorySessionsSuite) TestUpdate() {
	s.Require().NoError(s.store.Save(s.ctx, s.session("u", time.Minute)))

	s.Run("persists changes made by fn", func() {
		err := s.store.Update(s.ctx, "u", func(session *models.Session) error {
			session.Advance()
			return nil
		})
		s.Require().NoError(err)

		got, err := s.store.Find(s.ctx, "u")
		s.Require().NoError(err)
		s.Equal(2, got.Offset)
		s.Equal(1, got.PagesServed)
	})

	s.Run("an error from fn discards its changes", func() {
		boom := errors.New("boom")
		err := s.store.Update(s.ctx, "u", func(session *models.Session) error {
			session.Offset = 0
			return boom
		})
		s.ErrorIs(err, boom)

		got, err := s.store.Find(s.ctx, "u")
		s.Require().NoError(err)
		s.Equal(2, got.Offset)
	})

	s.Run("missing and expired sessions are ErrNotFound", func() {
		called := false
		fn := func(*models.Session) error {
			called = true
			return nil
		}
		s.ErrorIs(s.store.Update(s.ctx, "missing", fn), sentinel.ErrNotFound)

		s.clock.Advance(2 * time.Minute)
		s.ErrorIs(s.store.Update(s.ctx, "u", fn), sentinel.ErrNotFound)
		s.False(called)
	})
}
