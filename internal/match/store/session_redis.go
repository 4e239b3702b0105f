package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bloodlink/internal/match/models"
	"bloodlink/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix = "bloodlink:search:"

	// maxUpdateAttempts bounds optimistic retries when another writer touches
	// the watched key.
	maxUpdateAttempts = 5
)

// RedisSessions stores search sessions as JSON with a Redis TTL, so every
// instance behind a load balancer can continue the same session.
type RedisSessions struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisSessions(client *redis.Client) *RedisSessions {
	return &RedisSessions{client: client, now: time.Now}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Save writes session with a TTL matching its expiry. A session already past
// ExpiresAt is removed and yields ErrNotFound.
func (s *RedisSessions) Save(ctx context.Context, session *models.Session) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		if err := s.client.Del(ctx, sessionKey(session.ID)).Err(); err != nil {
			return fmt.Errorf("delete expired search session: %w", err)
		}
		return sentinel.ErrNotFound
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal search session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save search session: %w", err)
	}
	return nil
}

func (s *RedisSessions) Find(ctx context.Context, id string) (*models.Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load search session: %w", err)
	}
	return decodeSession(payload)
}

// Update reads, modifies and writes the session inside WATCH/MULTI so two
// concurrent updates cannot both apply to the same version. The key keeps its
// TTL. When every attempt loses the race the error wraps ErrConflict.
func (s *RedisSessions) Update(ctx context.Context, id string, fn func(*models.Session) error) error {
	key := sessionKey(id)
	apply := func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load search session: %w", err)
		}
		session, err := decodeSession(payload)
		if err != nil {
			return err
		}
		if err := fn(session); err != nil {
			return err
		}
		updated, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("marshal search session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, redis.KeepTTL)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, apply, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update search session: %w", sentinel.ErrConflict)
}

func decodeSession(payload []byte) (*models.Session, error) {
	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("decode search session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessions) Delete(ctx context.Context, id string) error {
	removed, err := s.client.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete search session: %w", err)
	}
	if removed == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
