package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/normscout/normscout-backend/internal/catalog"
	"github.com/normscout/normscout-backend/internal/domain"
	"github.com/normscout/normscout-backend/internal/platform/logger"
	"github.com/normscout/normscout-backend/internal/repos"
)

// AnalysisService is the orchestrator for one analysis run: resolve the
// user's entitlements, load the allowed norms, fan out the checks and write
// the audit record.
type AnalysisService interface {
	Run(ctx context.Context, userID, sessionID, workspaceID, productDescription string, onProgress func(MatchProgress)) (*domain.AnalysisRun, error)
}

type analysisService struct {
	log         *logger.Logger
	entitlement EntitlementService
	catalog     *catalog.Catalog
	matcher     MatcherService
	records     repos.AnalysisRecordRepo
}

// NewAnalysisService wires the orchestrator. records may be nil when
// running without Postgres; runs are then not audited.
func NewAnalysisService(log *logger.Logger, entitlement EntitlementService, cat *catalog.Catalog, matcher MatcherService, records repos.AnalysisRecordRepo) AnalysisService {
	return &analysisService{
		log:         log.With("service", "AnalysisService"),
		entitlement: entitlement,
		catalog:     cat,
		matcher:     matcher,
		records:     records,
	}
}

func (s *analysisService) Run(ctx context.Context, userID, sessionID, workspaceID, productDescription string, onProgress func(MatchProgress)) (*domain.AnalysisRun, error) {
	databases := s.entitlement.AllowedDatabases(ctx, userID)
	norms, err := s.catalog.Load(databases)
	if err != nil {
		return nil, err
	}
	s.log.Info("starting analysis run",
		"user_id", userID, "session_id", sessionID, "databases", len(databases), "norms", len(norms))

	run, runErr := s.matcher.Analyze(ctx, productDescription, norms, onProgress)
	if run != nil {
		// A canceled run still leaves an audit trail of what finished.
		s.persistRecord(userID, sessionID, workspaceID, databases, run)
	}
	return run, runErr
}

func (s *analysisService) persistRecord(userID, sessionID, workspaceID string, databases []string, run *domain.AnalysisRun) {
	if s.records == nil {
		return
	}

	allowedJSON, _ := json.Marshal(databases)
	resultsJSON, _ := json.Marshal(run.Results)
	matchedJSON, _ := json.Marshal(run.MatchedResults)

	record := &domain.AnalysisRecord{
		RunID:            run.RunID,
		UserID:           userID,
		SessionID:        sessionID,
		WorkspaceID:      workspaceID,
		ProductSummary:   run.ProductSummary,
		AllowedDatabases: allowedJSON,
		Results:          resultsJSON,
		MatchedResults:   matchedJSON,
		NormsChecked:     len(run.Results),
		NormsMatched:     len(run.MatchedResults),
		StartedAt:        run.StartedAt,
		CompletedAt:      run.CompletedAt,
	}

	// The request context may already be canceled; the audit write gets
	// its own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.records.Create(ctx, nil, []*domain.AnalysisRecord{record}); err != nil {
		s.log.Error("failed to persist analysis record", "run_id", run.RunID, "error", err)
	}
}
