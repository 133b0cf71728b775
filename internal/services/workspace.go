package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/normscout/normscout-backend/internal/domain"
	apperrors "github.com/normscout/normscout-backend/internal/pkg/errors"
	"github.com/normscout/normscout-backend/internal/platform/logger"
	"github.com/normscout/normscout-backend/internal/store"
)

// WorkspaceService manages promoted sessions: durable product descriptions
// plus their latest analysis, editable and re-analyzable after the intake
// dialogue is gone.
type WorkspaceService interface {
	PromoteSession(ctx context.Context, session *domain.ConversationSession, run *domain.AnalysisRun) (*domain.Workspace, error)
	Get(ctx context.Context, workspaceID string) (*domain.Workspace, error)
	UpdateDescription(ctx context.Context, workspaceID, description string) (*domain.Workspace, error)
	Delete(ctx context.Context, workspaceID string) error
	ListIDs(ctx context.Context) ([]string, error)

	// Reanalyze reruns norm matching against the workspace's current
	// description and replaces the stored analysis on success.
	Reanalyze(ctx context.Context, userID, workspaceID string, onProgress func(MatchProgress)) (*domain.Workspace, error)
}

type workspaceService struct {
	log        *logger.Logger
	workspaces store.WorkspaceStore
	analysis   AnalysisService
}

func NewWorkspaceService(log *logger.Logger, workspaces store.WorkspaceStore, analysis AnalysisService) WorkspaceService {
	return &workspaceService{
		log:        log.With("service", "WorkspaceService"),
		workspaces: workspaces,
		analysis:   analysis,
	}
}

func (s *workspaceService) PromoteSession(ctx context.Context, session *domain.ConversationSession, run *domain.AnalysisRun) (*domain.Workspace, error) {
	if session == nil || session.ProductSummary == "" {
		return nil, apperrors.ErrInvalidArgument
	}

	now := time.Now()
	ws := &domain.Workspace{
		ID:                 uuid.NewString(),
		UserID:             session.UserID,
		SessionID:          session.SessionID,
		ProductDescription: session.ProductSummary,
		History:            session.History,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if run != nil {
		ws.MatchedNorms = run.MatchedResults
		ws.AllResults = run.Results
		analyzedAt := run.CompletedAt
		ws.AnalyzedAt = &analyzedAt
	}

	if err := s.workspaces.Put(ctx, ws); err != nil {
		return nil, err
	}
	s.log.Info("created workspace", "workspace_id", ws.ID, "session_id", session.SessionID)
	return ws, nil
}

func (s *workspaceService) Get(ctx context.Context, workspaceID string) (*domain.Workspace, error) {
	return s.workspaces.Get(ctx, workspaceID)
}

func (s *workspaceService) UpdateDescription(ctx context.Context, workspaceID, description string) (*domain.Workspace, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperrors.ErrInvalidArgument
	}

	ws, err := s.workspaces.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	ws.ProductDescription = description
	ws.Version++
	ws.UpdatedAt = time.Now()
	if err := s.workspaces.Put(ctx, ws); err != nil {
		return nil, err
	}
	s.log.Info("updated workspace description", "workspace_id", workspaceID, "version", ws.Version)
	return ws, nil
}

func (s *workspaceService) Delete(ctx context.Context, workspaceID string) error {
	if err := s.workspaces.Delete(ctx, workspaceID); err != nil {
		return err
	}
	s.log.Info("deleted workspace", "workspace_id", workspaceID)
	return nil
}

func (s *workspaceService) ListIDs(ctx context.Context) ([]string, error) {
	return s.workspaces.ListIDs(ctx)
}

func (s *workspaceService) Reanalyze(ctx context.Context, userID, workspaceID string, onProgress func(MatchProgress)) (*domain.Workspace, error) {
	ws, err := s.workspaces.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	run, runErr := s.analysis.Run(ctx, userID, ws.SessionID, ws.ID, ws.ProductDescription, onProgress)
	if runErr != nil {
		// The audit record keeps the partial run; the workspace keeps
		// its last full analysis.
		return nil, runErr
	}

	ws.MatchedNorms = run.MatchedResults
	ws.AllResults = run.Results
	analyzedAt := run.CompletedAt
	ws.AnalyzedAt = &analyzedAt
	ws.Version++
	ws.UpdatedAt = time.Now()

	if err := s.workspaces.Put(ctx, ws); err != nil {
		return nil, err
	}
	s.log.Info("reanalyzed workspace", "workspace_id", workspaceID, "matched", len(ws.MatchedNorms))
	return ws, nil
}
