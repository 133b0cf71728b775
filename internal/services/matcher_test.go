package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/normscout/normscout-backend/internal/domain"
	"github.com/normscout/normscout-backend/internal/platform/openrouter"
)

func testNorms(ids ...string) []domain.Norm {
	norms := make([]domain.Norm, 0, len(ids))
	for _, id := range ids {
		norms = append(norms, domain.Norm{ID: id, Name: "Norm " + id, SourceDatabase: "norms.json"})
	}
	return norms
}

func TestAnalyzeFiltersAndSortsMatches(t *testing.T) {
	verdicts := map[string]openrouter.Verdict{
		"N-A": {Applies: true, Confidence: 90},
		"N-B": {Applies: true, Confidence: 90},
		"N-C": {Applies: true, Confidence: 50},
		"N-D": {Applies: true, Confidence: 40},
		"N-E": {Applies: false, Confidence: 95},
		"N-G": {Applies: true, Confidence: 72},
	}
	llm := &fakeLLM{
		checkNorm: func(ctx context.Context, product string, norm domain.Norm) (openrouter.Verdict, error) {
			if norm.ID == "N-F" {
				return openrouter.Verdict{}, errors.New("model unavailable")
			}
			return verdicts[norm.ID], nil
		},
	}
	svc := NewMatcherService(testLogger(t), llm)

	run, err := svc.Analyze(context.Background(), "a product", testNorms("N-A", "N-B", "N-C", "N-D", "N-E", "N-F", "N-G"), nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(run.Results) != 7 {
		t.Errorf("expected all 7 norms in results, got %d", len(run.Results))
	}

	failed := run.Results["N-F"]
	if failed.Applies || failed.Error == "" {
		t.Errorf("failed check should be applies=false with error, got %+v", failed)
	}

	wantOrder := []string{"N-A", "N-B", "N-G"}
	if len(run.MatchedResults) != len(wantOrder) {
		t.Fatalf("matched = %d, want %d: %+v", len(run.MatchedResults), len(wantOrder), run.MatchedResults)
	}
	for i, want := range wantOrder {
		if run.MatchedResults[i].NormID != want {
			t.Errorf("matched[%d] = %s, want %s", i, run.MatchedResults[i].NormID, want)
		}
	}
}

func TestAnalyzeThresholdIsStrict(t *testing.T) {
	llm := &fakeLLM{
		checkNorm: func(ctx context.Context, product string, norm domain.Norm) (openrouter.Verdict, error) {
			return openrouter.Verdict{Applies: true, Confidence: 50}, nil
		},
	}
	svc := NewMatcherService(testLogger(t), llm)

	run, err := svc.Analyze(context.Background(), "p", testNorms("N-1"), nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(run.MatchedResults) != 0 {
		t.Errorf("confidence exactly 50 must not match, got %+v", run.MatchedResults)
	}
}

func TestAnalyzeProgressEvents(t *testing.T) {
	llm := &fakeLLM{
		checkNorm: func(ctx context.Context, product string, norm domain.Norm) (openrouter.Verdict, error) {
			return openrouter.Verdict{Applies: true, Confidence: 80}, nil
		},
	}
	svc := NewMatcherService(testLogger(t), llm)

	var mu sync.Mutex
	var events []MatchProgress
	_, err := svc.Analyze(context.Background(), "p", testNorms("N-1", "N-2", "N-3", "N-4"), func(p MatchProgress) {
		mu.Lock()
		events = append(events, p)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(events) != 4 {
		t.Fatalf("expected 4 progress events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.Completed != i+1 {
			t.Errorf("event %d completed = %d, want %d", i, ev.Completed, i+1)
		}
		if ev.Total != 4 {
			t.Errorf("event %d total = %d, want 4", i, ev.Total)
		}
		if ev.NormID == "" || ev.Result.NormID != ev.NormID {
			t.Errorf("event %d carries inconsistent result: %+v", i, ev)
		}
	}
}

func TestAnalyzeConcurrencyBound(t *testing.T) {
	t.Setenv("ANALYZE_MAX_CONCURRENCY", "3")

	var inflight, peak int64
	llm := &fakeLLM{
		checkNorm: func(ctx context.Context, product string, norm domain.Norm) (openrouter.Verdict, error) {
			cur := atomic.AddInt64(&inflight, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&inflight, -1)
			return openrouter.Verdict{}, nil
		},
	}
	svc := NewMatcherService(testLogger(t), llm)

	ids := make([]string, 12)
	for i := range ids {
		ids[i] = string(rune('A' + i))
	}
	if _, err := svc.Analyze(context.Background(), "p", testNorms(ids...), nil); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if p := atomic.LoadInt64(&peak); p > 3 {
		t.Errorf("peak concurrency %d exceeds limit 3", p)
	}
}

func TestAnalyzeCancellationKeepsPartialRun(t *testing.T) {
	t.Setenv("ANALYZE_MAX_CONCURRENCY", "1")

	ctx, cancel := context.WithCancel(context.Background())
	llm := &fakeLLM{
		checkNorm: func(ctx context.Context, product string, norm domain.Norm) (openrouter.Verdict, error) {
			return openrouter.Verdict{Applies: true, Confidence: 99}, nil
		},
	}
	svc := NewMatcherService(testLogger(t), llm)

	run, err := svc.Analyze(ctx, "p", testNorms("N-1", "N-2", "N-3", "N-4", "N-5"), func(p MatchProgress) {
		if p.Completed == 2 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if run == nil {
		t.Fatal("expected partial run on cancellation")
	}
	if len(run.Results) == 0 || len(run.Results) >= 5 {
		t.Errorf("expected partial results, got %d of 5", len(run.Results))
	}
	if len(run.MatchedResults) == 0 {
		t.Error("partial run should still aggregate matched results")
	}
}

func TestAnalyzeEmptyNormSet(t *testing.T) {
	var calls int32
	llm := &fakeLLM{
		checkNorm: func(ctx context.Context, product string, norm domain.Norm) (openrouter.Verdict, error) {
			atomic.AddInt32(&calls, 1)
			return openrouter.Verdict{Applies: true, Confidence: 90}, nil
		},
	}
	svc := NewMatcherService(testLogger(t), llm)

	run, err := svc.Analyze(context.Background(), "a product", nil, func(p MatchProgress) {
		t.Errorf("unexpected progress event: %+v", p)
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("expected zero norm checks, got %d", got)
	}
	if len(run.Results) != 0 || len(run.MatchedResults) != 0 {
		t.Errorf("expected empty run, got %d results, %d matched", len(run.Results), len(run.MatchedResults))
	}
	if run.RunID == "" {
		t.Error("empty run still needs an id")
	}
}

func TestAnalyzeCancellationDrainsInFlightChecks(t *testing.T) {
	t.Setenv("ANALYZE_MAX_CONCURRENCY", "2")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	slowStarted := make(chan struct{})
	slowRelease := make(chan struct{})
	var slowCtxErr error
	llm := &fakeLLM{
		checkNorm: func(callCtx context.Context, product string, norm domain.Norm) (openrouter.Verdict, error) {
			if norm.ID == "SLOW" {
				close(slowStarted)
				<-slowRelease
				slowCtxErr = callCtx.Err()
			}
			return openrouter.Verdict{Applies: true, Confidence: 80}, nil
		},
	}
	svc := NewMatcherService(testLogger(t), llm)

	run, err := svc.Analyze(ctx, "p", testNorms("FAST", "SLOW"), func(p MatchProgress) {
		if p.NormID == "FAST" {
			<-slowStarted
			cancel()
			close(slowRelease)
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(run.Results) != 2 {
		t.Fatalf("in-flight check must drain into the run, got %d results", len(run.Results))
	}
	if res, ok := run.Results["SLOW"]; !ok || res.Error != "" {
		t.Errorf("drained check recorded as %+v", res)
	}
	if slowCtxErr != nil {
		t.Errorf("in-flight check saw cancellation: %v", slowCtxErr)
	}
}
