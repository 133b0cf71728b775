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

const defaultWorkspaceTTL = 30 * 24 * time.Hour

// WorkspaceStore persists promoted sessions. Every write refreshes the TTL
// so an actively used workspace never expires under its owner.
type WorkspaceStore interface {
	Get(ctx context.Context, workspaceID string) (*domain.Workspace, error)
	Put(ctx context.Context, ws *domain.Workspace) error
	Delete(ctx context.Context, workspaceID string) error
	ListIDs(ctx context.Context) ([]string, error)
}

type redisWorkspaceStore struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewRedisWorkspaceStore(log *logger.Logger, rdb *goredis.Client) WorkspaceStore {
	ttl := defaultWorkspaceTTL
	if raw := strings.TrimSpace(os.Getenv("WORKSPACE_TTL")); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			ttl = d
		}
	}
	return &redisWorkspaceStore{
		log: log.With("service", "RedisWorkspaceStore"),
		rdb: rdb,
		ttl: ttl,
	}
}

func workspaceKey(id string) string { return "workspace:" + id }

func (s *redisWorkspaceStore) Get(ctx context.Context, workspaceID string) (*domain.Workspace, error) {
	raw, err := s.rdb.Get(ctx, workspaceKey(workspaceID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("workspace get: %w", err)
	}
	var ws domain.Workspace
	if err := json.Unmarshal(raw, &ws); err != nil {
		return nil, fmt.Errorf("workspace decode: %w", err)
	}
	return &ws, nil
}

func (s *redisWorkspaceStore) Put(ctx context.Context, ws *domain.Workspace) error {
	if ws == nil || ws.ID == "" {
		return apperrors.ErrInvalidArgument
	}
	raw, err := json.Marshal(ws)
	if err != nil {
		return fmt.Errorf("workspace encode: %w", err)
	}
	if err := s.rdb.Set(ctx, workspaceKey(ws.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("workspace put: %w", err)
	}
	return nil
}

func (s *redisWorkspaceStore) Delete(ctx context.Context, workspaceID string) error {
	if err := s.rdb.Del(ctx, workspaceKey(workspaceID)).Err(); err != nil {
		return fmt.Errorf("workspace delete: %w", err)
	}
	return nil
}

// ListIDs scans the keyspace for workspace ids. Intended for admin and
// debugging surfaces, not hot paths.
func (s *redisWorkspaceStore) ListIDs(ctx context.Context) ([]string, error) {
	var (
		ids    []string
		cursor uint64
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, "workspace:*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("workspace scan: %w", err)
		}
		for _, key := range keys {
			ids = append(ids, strings.TrimPrefix(key, "workspace:"))
		}
		if next == 0 {
			return ids, nil
		}
		cursor = next
	}
}
