package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/normscout/normscout-backend/internal/domain"
	"github.com/normscout/normscout-backend/internal/observability"
	"github.com/normscout/normscout-backend/internal/platform/logger"
	"github.com/normscout/normscout-backend/internal/platform/openrouter"
	"github.com/normscout/normscout-backend/internal/utils"
)

// MatchProgress is emitted once per finished norm check, in completion
// order. Completed counts both successful and failed checks.
type MatchProgress struct {
	Completed int                            `json:"completed"`
	Total     int                            `json:"total"`
	NormID    string                         `json:"norm_id"`
	Result    domain.NormApplicabilityResult `json:"result"`
}

// MatcherService checks a product description against a set of norms with
// bounded parallelism.
type MatcherService interface {
	// Analyze runs one norm check per norm and aggregates the outcome. A
	// failed check is recorded as applies=false rather than failing the
	// run. When ctx is canceled mid-run, no further checks are dispatched
	// but checks already in flight finish and count; the partial run is
	// returned together with ctx's error. Checks that never ran are
	// absent from Results.
	Analyze(ctx context.Context, productDescription string, norms []domain.Norm, onProgress func(MatchProgress)) (*domain.AnalysisRun, error)
}

type matcherService struct {
	log            *logger.Logger
	llm            openrouter.Client
	maxConcurrency int
}

func NewMatcherService(log *logger.Logger, llm openrouter.Client) MatcherService {
	serviceLog := log.With("service", "MatcherService")
	maxConc := utils.GetEnvAsInt("ANALYZE_MAX_CONCURRENCY", 10, log)
	if maxConc < 1 {
		maxConc = 1
	}
	return &matcherService{
		log:            serviceLog,
		llm:            llm,
		maxConcurrency: maxConc,
	}
}

func (s *matcherService) Analyze(ctx context.Context, productDescription string, norms []domain.Norm, onProgress func(MatchProgress)) (*domain.AnalysisRun, error) {
	run := &domain.AnalysisRun{
		RunID:          uuid.NewString(),
		ProductSummary: productDescription,
		Results:        make(map[string]domain.NormApplicabilityResult, len(norms)),
		StartedAt:      time.Now(),
	}
	for _, n := range norms {
		run.AllowedNormIDs = append(run.AllowedNormIDs, n.ID)
	}

	total := len(norms)
	s.log.Info("checking norms in parallel", "total", total, "max_concurrency", s.maxConcurrency)

	// Cancellation stops dispatch only: checks already talking to the
	// model run to completion on a detached context and land in the
	// partial run, so the audit record reflects every call that was made.
	callCtx := context.WithoutCancel(ctx)
	resultCh := make(chan domain.NormApplicabilityResult)
	go func() {
		defer close(resultCh)
		var g errgroup.Group
		g.SetLimit(s.maxConcurrency)
		for _, norm := range norms {
			norm := norm
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				resultCh <- s.checkOne(callCtx, productDescription, norm)
				return nil
			})
		}
		_ = g.Wait()
	}()

	// Aggregation is serialized here; workers never touch the run.
	completed := 0
	for res := range resultCh {
		completed++
		run.Results[res.NormID] = res
		if res.Error == "" {
			s.log.Info("norm check done", "progress", fmt.Sprintf("%d/%d", completed, total), "norm", res.NormID)
		} else {
			s.log.Error("norm check failed", "progress", fmt.Sprintf("%d/%d", completed, total), "norm", res.NormID, "error", res.Error)
		}
		if onProgress != nil {
			onProgress(MatchProgress{Completed: completed, Total: total, NormID: res.NormID, Result: res})
		}
	}

	run.CompletedAt = time.Now()
	run.MatchedResults = matchedResults(run.Results)

	status := "completed"
	err := ctx.Err()
	if err != nil {
		status = "canceled"
	}
	observability.Current().ObserveAnalysisRun(status, run.CompletedAt.Sub(run.StartedAt), len(run.Results), len(run.MatchedResults))
	s.log.Info("analysis run finished", "run_id", run.RunID, "status", status, "checked", len(run.Results), "matched", len(run.MatchedResults))

	return run, err
}

func (s *matcherService) checkOne(ctx context.Context, productDescription string, norm domain.Norm) domain.NormApplicabilityResult {
	verdict, err := s.llm.CheckNorm(ctx, productDescription, norm)
	if err != nil {
		observability.Current().IncNormCheck(norm.SourceDatabase, false)
		return domain.NormApplicabilityResult{
			NormID:    norm.ID,
			NormName:  norm.Name,
			Applies:   false,
			Reasoning: fmt.Sprintf("Error: %v", err),
			Error:     err.Error(),
		}
	}
	observability.Current().IncNormCheck(norm.SourceDatabase, true)
	return domain.NormApplicabilityResult{
		NormID:     norm.ID,
		NormName:   norm.Name,
		Applies:    verdict.Applies,
		Confidence: verdict.Confidence,
		Reasoning:  verdict.Reasoning,
	}
}

// matchedResults filters to applicable norms above the confidence threshold
// and orders them by confidence descending, norm id ascending on ties.
func matchedResults(results map[string]domain.NormApplicabilityResult) []domain.NormApplicabilityResult {
	var matched []domain.NormApplicabilityResult
	for _, res := range results {
		if res.Applies && res.Confidence > domain.MatchThreshold {
			matched = append(matched, res)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Confidence != matched[j].Confidence {
			return matched[i].Confidence > matched[j].Confidence
		}
		return matched[i].NormID < matched[j].NormID
	})
	return matched
}
