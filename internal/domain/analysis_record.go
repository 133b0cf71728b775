package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnalysisRecord is the durable audit row for one AnalysisRun. Workspaces in
// Redis only hold the latest run; every run ever produced lands here.
type AnalysisRecord struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RunID            string         `gorm:"column:run_id;not null;uniqueIndex" json:"run_id"`
	UserID           string         `gorm:"column:user_id;index" json:"user_id"`
	SessionID        string         `gorm:"column:session_id;index" json:"session_id"`
	WorkspaceID      string         `gorm:"column:workspace_id;index" json:"workspace_id,omitempty"`
	ProductSummary   string         `gorm:"column:product_summary;type:text;not null" json:"product_summary"`
	AllowedDatabases datatypes.JSON `gorm:"column:allowed_databases" json:"allowed_databases"`
	Results          datatypes.JSON `gorm:"column:results" json:"results"`
	MatchedResults   datatypes.JSON `gorm:"column:matched_results" json:"matched_results"`
	NormsChecked     int            `gorm:"column:norms_checked;not null;default:0" json:"norms_checked"`
	NormsMatched     int            `gorm:"column:norms_matched;not null;default:0" json:"norms_matched"`
	StartedAt        time.Time      `gorm:"column:started_at;not null" json:"started_at"`
	CompletedAt      time.Time      `gorm:"column:completed_at;not null" json:"completed_at"`
	CreatedAt        time.Time      `gorm:"not null;index" json:"created_at"`
}

func (AnalysisRecord) TableName() string { return "analysis_record" }

func (r *AnalysisRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
