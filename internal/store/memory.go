package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/normscout/normscout-backend/internal/domain"
	apperrors "github.com/normscout/normscout-backend/internal/pkg/errors"
)

// In-memory stores used by tests and local development without Redis.
// Values round-trip through JSON so callers cannot share mutable state with
// the store, matching the Redis implementations.

type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: map[string][]byte{}}
}

func (s *MemorySessionStore) Get(ctx context.Context, sessionID string) (*domain.ConversationSession, error) {
	s.mu.RLock()
	raw, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	var session domain.ConversationSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *MemorySessionStore) Put(ctx context.Context, session *domain.ConversationSession) error {
	if session == nil || session.SessionID == "" {
		return apperrors.ErrInvalidArgument
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions[session.SessionID] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

type MemoryWorkspaceStore struct {
	mu         sync.RWMutex
	workspaces map[string][]byte
}

func NewMemoryWorkspaceStore() *MemoryWorkspaceStore {
	return &MemoryWorkspaceStore{workspaces: map[string][]byte{}}
}

func (s *MemoryWorkspaceStore) Get(ctx context.Context, workspaceID string) (*domain.Workspace, error) {
	s.mu.RLock()
	raw, ok := s.workspaces[workspaceID]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	var ws domain.Workspace
	if err := json.Unmarshal(raw, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (s *MemoryWorkspaceStore) Put(ctx context.Context, ws *domain.Workspace) error {
	if ws == nil || ws.ID == "" {
		return apperrors.ErrInvalidArgument
	}
	raw, err := json.Marshal(ws)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.workspaces[ws.ID] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryWorkspaceStore) Delete(ctx context.Context, workspaceID string) error {
	s.mu.Lock()
	delete(s.workspaces, workspaceID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryWorkspaceStore) ListIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.workspaces))
	for id := range s.workspaces {
		ids = append(ids, id)
	}
	return ids, nil
}
