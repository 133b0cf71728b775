package domain

import "time"

// Workspace is a durable snapshot of a completed intake session plus its
// latest analysis. Workspaces live in Redis with a 30-day TTL; the full run
// history goes to Postgres (AnalysisRecord).
type Workspace struct {
	ID                 string                             `json:"id"`
	UserID             string                             `json:"user_id,omitempty"`
	SessionID          string                             `json:"session_id"`
	ProductDescription string                             `json:"product_description"`
	History            []ConversationTurn                 `json:"conversation_history"`
	MatchedNorms       []NormApplicabilityResult          `json:"matched_norms"`
	AllResults         map[string]NormApplicabilityResult `json:"all_results"`
	AnalyzedAt         *time.Time                         `json:"analyzed_at,omitempty"`
	Version            int                                `json:"version"`
	CreatedAt          time.Time                          `json:"created"`
	UpdatedAt          time.Time                          `json:"updated"`
}
