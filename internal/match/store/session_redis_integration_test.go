//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"bloodlink/internal/match/models"
	"bloodlink/internal/match/store"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/testutil/containers"
)

type RedisSessionsSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisSessions
}

func TestRedisSessionsSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSessionsSuite))
}

func (s *RedisSessionsSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = store.NewRedisSessions(s.redis.Client)
}

func (s *RedisSessionsSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func newSession(ttl time.Duration) *models.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Session{
		ID: uuid.NewString(),
		Requester: models.Requester{
			Location:   "Kochi",
			State:      "Kerala",
			Latitude:   9.9312,
			Longitude:  76.2673,
			BloodGroup: "A-",
		},
		Matches:     []models.Match{{DonorID: 4, Name: "Anu", BloodGroup: "A-", DistanceKm: 3.2}},
		Offset:      1,
		PagesServed: 1,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

func (s *RedisSessionsSuite) TestRoundTrip() {
	ctx := context.Background()
	saved := newSession(time.Minute)
	s.Require().NoError(s.store.Save(ctx, saved))

	got, err := s.store.Find(ctx, saved.ID)
	s.Require().NoError(err)
	s.Equal(saved, got)

	ttl, err := s.redis.Client.TTL(ctx, "bloodlink:search:"+saved.ID).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
}

func (s *RedisSessionsSuite) TestExpiredSessionIsNotStored() {
	ctx := context.Background()
	stale := newSession(-time.Minute)
	s.ErrorIs(s.store.Save(ctx, stale), sentinel.ErrNotFound)

	_, err := s.store.Find(ctx, stale.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisSessionsSuite) TestDelete() {
	ctx := context.Background()
	saved := newSession(time.Minute)
	s.Require().NoError(s.store.Save(ctx, saved))

	s.Require().NoError(s.store.Delete(ctx, saved.ID))
	s.ErrorIs(s.store.Delete(ctx, saved.ID), sentinel.ErrNotFound)
}

func (s *RedisSessionsSuite) TestUpdateKeepsTTL() {
	ctx := context.Background()
	saved := newSession(time.Minute)
	s.Require().NoError(s.store.Save(ctx, saved))

	err := s.store.Update(ctx, saved.ID, func(session *models.Session) error {
		session.PagesServed++
		return nil
	})
	s.Require().NoError(err)

	got, err := s.store.Find(ctx, saved.ID)
	s.Require().NoError(err)
	s.Equal(2, got.PagesServed)

	ttl, err := s.redis.Client.TTL(ctx, "bloodlink:search:"+saved.ID).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))

	s.ErrorIs(s.store.Update(ctx, "missing", func(*models.Session) error { return nil }), sentinel.ErrNotFound)
}

func (s *RedisSessionsSuite) TestConcurrentUpdatesNeverLoseWrites() {
	ctx := context.Background()
	saved := newSession(time.Minute)
	saved.PagesServed = 0
	s.Require().NoError(s.store.Save(ctx, saved))

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Update(ctx, saved.ID, func(session *models.Session) error {
				session.PagesServed++
				return nil
			})
			if err != nil && !errors.Is(err, sentinel.ErrConflict) {
				s.T().Errorf("unexpected update error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, err := s.store.Find(ctx, saved.ID)
	s.Require().NoError(err)
	s.Positive(succeeded)
	s.Equal(succeeded, got.PagesServed)
}
