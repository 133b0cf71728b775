package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/normscout/normscout-backend/internal/domain"
	apperrors "github.com/normscout/normscout-backend/internal/pkg/errors"
	"github.com/normscout/normscout-backend/internal/platform/logger"
)

const defaultSessionTTL = 24 * time.Hour

// SessionStore persists in-flight conversation sessions. Entries expire on
// their own; a completed session survives only as a workspace.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*domain.ConversationSession, error)
	Put(ctx context.Context, session *domain.ConversationSession) error
	Delete(ctx context.Context, sessionID string) error
}

type redisSessionStore struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewRedisSessionStore(log *logger.Logger, rdb *goredis.Client) SessionStore {
	ttl := defaultSessionTTL
	if raw := strings.TrimSpace(os.Getenv("SESSION_TTL")); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			ttl = d
		}
	}
	return &redisSessionStore{
		log: log.With("service", "RedisSessionStore"),
		rdb: rdb,
		ttl: ttl,
	}
}

func sessionKey(id string) string { return "session:" + id }

func (s *redisSessionStore) Get(ctx context.Context, sessionID string) (*domain.ConversationSession, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("session get: %w", err)
	}
	var session domain.ConversationSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	return &session, nil
}

func (s *redisSessionStore) Put(ctx context.Context, session *domain.ConversationSession) error {
	if session == nil || session.SessionID == "" {
		return apperrors.ErrInvalidArgument
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(session.SessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("session put: %w", err)
	}
	return nil
}

func (s *redisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}
