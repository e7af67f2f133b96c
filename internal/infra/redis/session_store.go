package redis

import (
	"context"
	"sync"
	"time"

	"fan-quiz-service/internal/app"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions themselves stay in process memory; Redis only carries a
// liveness marker per session (owner id, TTL refreshed on access) so
// operators can count and inspect live sessions across instances.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		logger:   logger,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	// best-effort liveness marker
	if err := s.client.Set(context.Background(), s.key(session.ID()), session.OwnerID(), s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("session_id", session.ID()).Msg("redis liveness marker not set")
	}
}

func (s *SessionStore) Get(id string) (*app.Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		if err := s.client.Expire(context.Background(), s.key(id), s.ttl).Err(); err != nil {
			s.logger.Warn().Err(err).Str("session_id", id).Msg("redis liveness marker not refreshed")
		}
	}
	return session, ok
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	if err := s.client.Del(context.Background(), s.key(id)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("session_id", id).Msg("redis liveness marker not removed")
	}
}

// CountLive counts liveness markers across every instance sharing the Redis.
func (s *SessionStore) CountLive(ctx context.Context) (int, error) {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return 0, err
		}
		count += len(keys)
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}

const keyPrefix = "quiz:session:"

func (s *SessionStore) key(id string) string {
	return keyPrefix + id
}
