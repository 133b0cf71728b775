package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/normscout/normscout-backend/internal/domain"
	"github.com/normscout/normscout-backend/internal/observability"
	apperrors "github.com/normscout/normscout-backend/internal/pkg/errors"
	"github.com/normscout/normscout-backend/internal/platform/logger"
	"github.com/normscout/normscout-backend/internal/platform/openrouter"
	"github.com/normscout/normscout-backend/internal/store"
	"github.com/normscout/normscout-backend/internal/utils"
)

const fallbackQuestion = "Could you tell me more about the technical specifications?"

// ConversationReply is what the intake dialogue returns after each user
// message.
type ConversationReply struct {
	SessionID string   `json:"session_id,omitempty"`
	Complete  bool     `json:"complete"`
	Message   string   `json:"message"`
	Missing   []string `json:"missing,omitempty"`
	Reasoning string   `json:"reasoning,omitempty"`
}

// ConversationService drives the product intake dialogue: collect user
// input, judge completeness, ask follow-ups until the description is good
// enough, then produce a final product summary.
type ConversationService interface {
	Start(ctx context.Context, userID, initialInput string) (*ConversationReply, error)
	Respond(ctx context.Context, sessionID, message string) (*ConversationReply, error)
	GetSession(ctx context.Context, sessionID string) (*domain.ConversationSession, error)

	// Finalize builds the product summary for a complete session and
	// stores it on the session. Calling it on an in-progress session
	// returns ErrSessionNotComplete.
	Finalize(ctx context.Context, sessionID string) (*domain.ConversationSession, error)
}

type conversationService struct {
	log          *logger.Logger
	llm          openrouter.Client
	completeness CompletenessService
	sessions     store.SessionStore
	maxUserTurns int
}

func NewConversationService(log *logger.Logger, llm openrouter.Client, completeness CompletenessService, sessions store.SessionStore) ConversationService {
	serviceLog := log.With("service", "ConversationService")
	maxTurns := utils.GetEnvAsInt("CONVERSATION_MAX_TURNS", 10, log)
	if maxTurns < 1 {
		maxTurns = 1
	}
	return &conversationService{
		log:          serviceLog,
		llm:          llm,
		completeness: completeness,
		sessions:     sessions,
		maxUserTurns: maxTurns,
	}
}

func (s *conversationService) Start(ctx context.Context, userID, initialInput string) (*ConversationReply, error) {
	initialInput = strings.TrimSpace(initialInput)
	if initialInput == "" {
		return nil, apperrors.ErrInvalidArgument
	}

	now := time.Now()
	session := &domain.ConversationSession{
		SessionID: uuid.NewString(),
		UserID:    userID,
		Status:    domain.SessionInProgress,
		History: []domain.ConversationTurn{
			{Role: domain.TurnRoleUser, Content: initialInput, Timestamp: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	reply := s.advance(ctx, session)
	reply.SessionID = session.SessionID

	if err := s.sessions.Put(ctx, session); err != nil {
		return nil, err
	}
	observability.Current().IncSessionEvent("started")
	s.log.Info("started conversation session", "session_id", session.SessionID, "complete", reply.Complete)
	return reply, nil
}

func (s *conversationService) Respond(ctx context.Context, sessionID, message string) (*ConversationReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.ErrInvalidArgument
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == domain.SessionComplete {
		return &ConversationReply{
			SessionID: session.SessionID,
			Complete:  true,
			Message:   "This conversation is already complete. Run the analysis whenever you are ready.",
		}, nil
	}

	session.History = append(session.History, domain.ConversationTurn{
		Role: domain.TurnRoleUser, Content: message, Timestamp: time.Now(),
	})

	reply := s.advance(ctx, session)
	reply.SessionID = session.SessionID

	session.UpdatedAt = time.Now()
	if err := s.sessions.Put(ctx, session); err != nil {
		return nil, err
	}
	observability.Current().IncSessionEvent("responded")
	s.log.Info("conversation turn", "session_id", session.SessionID, "complete", reply.Complete, "user_turns", session.UserTurns())
	return reply, nil
}

// advance judges completeness after the latest user turn and either closes
// the session or appends a follow-up question. Sessions that hit the turn
// cutoff complete with whatever detail was gathered.
func (s *conversationService) advance(ctx context.Context, session *domain.ConversationSession) *ConversationReply {
	completeness := s.completeness.Analyze(ctx, session.History)

	if completeness.Complete {
		session.Status = domain.SessionComplete
		session.Missing = nil
		observability.Current().IncSessionEvent("completed")
		return &ConversationReply{
			Complete:  true,
			Message:   fmt.Sprintf("Excellent! I have all the information I need. %s", completeness.Reasoning),
			Reasoning: completeness.Reasoning,
		}
	}

	if session.UserTurns() >= s.maxUserTurns {
		session.Status = domain.SessionComplete
		session.Missing = completeness.Missing
		observability.Current().IncSessionEvent("max_turns")
		s.log.Warn("conversation hit turn cutoff, completing with available detail",
			"session_id", session.SessionID, "missing", completeness.Missing)
		return &ConversationReply{
			Complete:  true,
			Message:   "Thanks, that gives me enough to work with. I will analyze with the details provided so far.",
			Missing:   completeness.Missing,
			Reasoning: completeness.Reasoning,
		}
	}

	question, err := s.llm.GenerateFollowup(ctx, session.History, completeness.Missing)
	if err != nil || strings.TrimSpace(question) == "" {
		if err != nil {
			s.log.Error("follow-up generation failed, using fallback", "session_id", session.SessionID, "error", err)
		}
		question = fallbackQuestion
		observability.Current().IncSessionEvent("fallback_question")
	}

	session.Missing = completeness.Missing
	session.History = append(session.History, domain.ConversationTurn{
		Role: domain.TurnRoleAssistant, Content: question, Timestamp: time.Now(),
	})

	return &ConversationReply{
		Complete: false,
		Message:  question,
		Missing:  completeness.Missing,
	}
}

func (s *conversationService) GetSession(ctx context.Context, sessionID string) (*domain.ConversationSession, error) {
	return s.sessions.Get(ctx, sessionID)
}

func (s *conversationService) Finalize(ctx context.Context, sessionID string) (*domain.ConversationSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionComplete {
		return nil, apperrors.ErrSessionNotComplete
	}
	if session.ProductSummary != "" {
		return session, nil
	}

	summary, err := s.llm.Summarize(ctx, session.History)
	if err != nil || strings.TrimSpace(summary) == "" {
		if err != nil {
			s.log.Error("summary generation failed, falling back to raw input", "session_id", sessionID, "error", err)
		}
		summary = concatUserTurns(session.History)
	}

	session.ProductSummary = summary
	session.UpdatedAt = time.Now()
	if err := s.sessions.Put(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func concatUserTurns(history []domain.ConversationTurn) string {
	var parts []string
	for _, turn := range history {
		if turn.Role == domain.TurnRoleUser {
			parts = append(parts, turn.Content)
		}
	}
	return strings.Join(parts, " ")
}
