package domain

import "time"

type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
)

type ConversationTurn struct {
	Role      TurnRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionComplete   SessionStatus = "complete"
)

// ConversationSession is one user's intake dialogue. History is append-only;
// once Status is SessionComplete the session is no longer mutated (edits to
// the product description happen on the workspace, not here).
type ConversationSession struct {
	SessionID      string             `json:"session_id"`
	UserID         string             `json:"user_id,omitempty"`
	History        []ConversationTurn `json:"history"`
	Status         SessionStatus      `json:"status"`
	ProductSummary string             `json:"product_summary,omitempty"`
	Missing        []string           `json:"missing,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func (s *ConversationSession) UserTurns() int {
	n := 0
	for _, t := range s.History {
		if t.Role == TurnRoleUser {
			n++
		}
	}
	return n
}
