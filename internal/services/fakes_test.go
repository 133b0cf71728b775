package services

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/normscout/normscout-backend/internal/domain"
	"github.com/normscout/normscout-backend/internal/platform/logger"
	"github.com/normscout/normscout-backend/internal/platform/openrouter"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

// fakeLLM lets each test script the model's behavior per method. Unset
// methods answer with benign defaults.
type fakeLLM struct {
	checkNorm    func(ctx context.Context, product string, norm domain.Norm) (openrouter.Verdict, error)
	completeness func(ctx context.Context, history []domain.ConversationTurn) (openrouter.Completeness, error)
	followup     func(ctx context.Context, history []domain.ConversationTurn, missing []string) (string, error)
	summarize    func(ctx context.Context, history []domain.ConversationTurn) (string, error)
}

func (f *fakeLLM) CheckNorm(ctx context.Context, product string, norm domain.Norm) (openrouter.Verdict, error) {
	if f.checkNorm != nil {
		return f.checkNorm(ctx, product, norm)
	}
	return openrouter.Verdict{Applies: false, Confidence: 0}, nil
}

func (f *fakeLLM) AnalyzeCompleteness(ctx context.Context, history []domain.ConversationTurn) (openrouter.Completeness, error) {
	if f.completeness != nil {
		return f.completeness(ctx, history)
	}
	return openrouter.Completeness{Complete: true, Reasoning: "all set"}, nil
}

func (f *fakeLLM) GenerateFollowup(ctx context.Context, history []domain.ConversationTurn, missing []string) (string, error) {
	if f.followup != nil {
		return f.followup(ctx, history, missing)
	}
	return "What powers the device?", nil
}

func (f *fakeLLM) Summarize(ctx context.Context, history []domain.ConversationTurn) (string, error) {
	if f.summarize != nil {
		return f.summarize(ctx, history)
	}
	return "A summarized product description.", nil
}

// fakeGrantRepo is an in-memory PackageGrantRepo for entitlement tests.
type fakeGrantRepo struct {
	grants []*domain.PackageGrant
	err    error
}

func (f *fakeGrantRepo) Create(ctx context.Context, tx *gorm.DB, grants []*domain.PackageGrant) ([]*domain.PackageGrant, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.grants = append(f.grants, grants...)
	return grants, nil
}

func (f *fakeGrantRepo) GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID string) ([]*domain.PackageGrant, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.PackageGrant
	for _, g := range f.grants {
		if g.UserID == userID && g.Status == domain.PackageStatusActive {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGrantRepo) Deactivate(ctx context.Context, tx *gorm.DB, userID, packageID string) error {
	if f.err != nil {
		return f.err
	}
	for _, g := range f.grants {
		if g.UserID == userID && g.PackageID == packageID {
			g.Status = "canceled"
		}
	}
	return nil
}
