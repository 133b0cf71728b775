package services

import (
	"context"
	"fmt"

	"github.com/normscout/normscout-backend/internal/domain"
	"github.com/normscout/normscout-backend/internal/platform/logger"
	"github.com/normscout/normscout-backend/internal/platform/openrouter"
)

// CompletenessService judges whether a conversation carries enough technical
// detail to run norm matching. It fails closed: any LLM error reads as "not
// complete" so the dialogue keeps going instead of analyzing on thin input.
type CompletenessService interface {
	Analyze(ctx context.Context, history []domain.ConversationTurn) openrouter.Completeness
}

type completenessService struct {
	log *logger.Logger
	llm openrouter.Client
}

func NewCompletenessService(log *logger.Logger, llm openrouter.Client) CompletenessService {
	return &completenessService{
		log: log.With("service", "CompletenessService"),
		llm: llm,
	}
}

func (s *completenessService) Analyze(ctx context.Context, history []domain.ConversationTurn) openrouter.Completeness {
	result, err := s.llm.AnalyzeCompleteness(ctx, history)
	if err != nil {
		s.log.Error("completeness analysis failed", "error", err)
		return openrouter.Completeness{
			Complete:  false,
			Missing:   []string{"Error analyzing completeness"},
			Reasoning: fmt.Sprintf("Error: %v", err),
		}
	}
	return result
}
