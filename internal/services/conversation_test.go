package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/normscout/normscout-backend/internal/domain"
	apperrors "github.com/normscout/normscout-backend/internal/pkg/errors"
	"github.com/normscout/normscout-backend/internal/platform/openrouter"
	"github.com/normscout/normscout-backend/internal/store"
)

func newConversationService(t *testing.T, llm *fakeLLM) (ConversationService, *store.MemorySessionStore) {
	t.Helper()
	log := testLogger(t)
	sessions := store.NewMemorySessionStore()
	svc := NewConversationService(log, llm, NewCompletenessService(log, llm), sessions)
	return svc, sessions
}

func TestStartIncompleteAsksFollowup(t *testing.T) {
	llm := &fakeLLM{
		completeness: func(ctx context.Context, history []domain.ConversationTurn) (openrouter.Completeness, error) {
			return openrouter.Completeness{Complete: false, Missing: []string{"power source"}}, nil
		},
		followup: func(ctx context.Context, history []domain.ConversationTurn, missing []string) (string, error) {
			return "Is it battery or mains powered?", nil
		},
	}
	svc, _ := newConversationService(t, llm)

	reply, err := svc.Start(context.Background(), "user-1", "A smart lamp")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if reply.Complete {
		t.Error("expected incomplete reply")
	}
	if reply.Message != "Is it battery or mains powered?" {
		t.Errorf("message = %q", reply.Message)
	}
	if len(reply.Missing) != 1 || reply.Missing[0] != "power source" {
		t.Errorf("missing = %v", reply.Missing)
	}

	session, err := svc.GetSession(context.Background(), reply.SessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if session.Status != domain.SessionInProgress {
		t.Errorf("status = %s, want in_progress", session.Status)
	}
	if len(session.History) != 2 || session.History[1].Role != domain.TurnRoleAssistant {
		t.Errorf("history should hold user turn plus assistant question: %+v", session.History)
	}
}

func TestStartCompleteImmediately(t *testing.T) {
	llm := &fakeLLM{
		completeness: func(ctx context.Context, history []domain.ConversationTurn) (openrouter.Completeness, error) {
			return openrouter.Completeness{Complete: true, Reasoning: "All essentials covered."}, nil
		},
	}
	svc, _ := newConversationService(t, llm)

	reply, err := svc.Start(context.Background(), "", "240V AC smart lamp with WiFi, household lighting")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !reply.Complete {
		t.Fatal("expected complete reply")
	}
	if !strings.Contains(reply.Message, "All essentials covered.") {
		t.Errorf("message should carry the reasoning: %q", reply.Message)
	}

	session, _ := svc.GetSession(context.Background(), reply.SessionID)
	if session.Status != domain.SessionComplete {
		t.Errorf("status = %s, want complete", session.Status)
	}
}

func TestStartRejectsEmptyInput(t *testing.T) {
	svc, _ := newConversationService(t, &fakeLLM{})
	if _, err := svc.Start(context.Background(), "", "   "); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRespondUsesFallbackQuestionOnError(t *testing.T) {
	llm := &fakeLLM{
		completeness: func(ctx context.Context, history []domain.ConversationTurn) (openrouter.Completeness, error) {
			return openrouter.Completeness{Complete: false, Missing: []string{"voltage"}}, nil
		},
		followup: func(ctx context.Context, history []domain.ConversationTurn, missing []string) (string, error) {
			return "", errors.New("model unavailable")
		},
	}
	svc, _ := newConversationService(t, llm)

	start, err := svc.Start(context.Background(), "", "A lamp")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	reply, err := svc.Respond(context.Background(), start.SessionID, "It plugs into the wall")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if reply.Message != fallbackQuestion {
		t.Errorf("expected fallback question, got %q", reply.Message)
	}
}

func TestCompletenessErrorKeepsSessionOpen(t *testing.T) {
	llm := &fakeLLM{
		completeness: func(ctx context.Context, history []domain.ConversationTurn) (openrouter.Completeness, error) {
			return openrouter.Completeness{}, errors.New("model unavailable")
		},
	}
	svc, _ := newConversationService(t, llm)

	reply, err := svc.Start(context.Background(), "", "A lamp")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if reply.Complete {
		t.Error("completeness error must read as incomplete")
	}
	session, _ := svc.GetSession(context.Background(), reply.SessionID)
	if session.Status != domain.SessionInProgress {
		t.Errorf("status = %s, want in_progress", session.Status)
	}
}

func TestTurnCutoffForcesCompletion(t *testing.T) {
	t.Setenv("CONVERSATION_MAX_TURNS", "2")
	llm := &fakeLLM{
		completeness: func(ctx context.Context, history []domain.ConversationTurn) (openrouter.Completeness, error) {
			return openrouter.Completeness{Complete: false, Missing: []string{"everything"}}, nil
		},
	}
	svc, _ := newConversationService(t, llm)

	start, err := svc.Start(context.Background(), "", "A lamp")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if start.Complete {
		t.Fatal("first turn should not complete")
	}

	reply, err := svc.Respond(context.Background(), start.SessionID, "not sure")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !reply.Complete {
		t.Fatal("second user turn should hit the cutoff and complete")
	}

	session, _ := svc.GetSession(context.Background(), start.SessionID)
	if session.Status != domain.SessionComplete {
		t.Errorf("status = %s, want complete", session.Status)
	}
}

func TestRespondUnknownSession(t *testing.T) {
	svc, _ := newConversationService(t, &fakeLLM{})
	if _, err := svc.Respond(context.Background(), "nope", "hello"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFinalizeRequiresCompleteSession(t *testing.T) {
	llm := &fakeLLM{
		completeness: func(ctx context.Context, history []domain.ConversationTurn) (openrouter.Completeness, error) {
			return openrouter.Completeness{Complete: false, Missing: []string{"power"}}, nil
		},
	}
	svc, _ := newConversationService(t, llm)

	start, err := svc.Start(context.Background(), "", "A lamp")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Finalize(context.Background(), start.SessionID); !errors.Is(err, apperrors.ErrSessionNotComplete) {
		t.Errorf("expected ErrSessionNotComplete, got %v", err)
	}
}

func TestFinalizeSummaryFallback(t *testing.T) {
	llm := &fakeLLM{
		completeness: func(ctx context.Context, history []domain.ConversationTurn) (openrouter.Completeness, error) {
			return openrouter.Completeness{Complete: true, Reasoning: "done"}, nil
		},
		summarize: func(ctx context.Context, history []domain.ConversationTurn) (string, error) {
			return "", errors.New("model unavailable")
		},
	}
	svc, _ := newConversationService(t, llm)

	start, err := svc.Start(context.Background(), "", "A 240V AC smart lamp")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	session, err := svc.Finalize(context.Background(), start.SessionID)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if session.ProductSummary != "A 240V AC smart lamp" {
		t.Errorf("summary fallback should concatenate user turns, got %q", session.ProductSummary)
	}
}

func TestFinalizeStoresSummaryOnce(t *testing.T) {
	calls := 0
	llm := &fakeLLM{
		summarize: func(ctx context.Context, history []domain.ConversationTurn) (string, error) {
			calls++
			return "Technical summary.", nil
		},
	}
	svc, _ := newConversationService(t, llm)

	start, err := svc.Start(context.Background(), "", "A lamp with full specs")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Finalize(context.Background(), start.SessionID); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	session, err := svc.Finalize(context.Background(), start.SessionID)
	if err != nil {
		t.Fatalf("Finalize twice: %v", err)
	}
	if calls != 1 {
		t.Errorf("summary generated %d times, want 1", calls)
	}
	if session.ProductSummary != "Technical summary." {
		t.Errorf("summary = %q", session.ProductSummary)
	}
}
