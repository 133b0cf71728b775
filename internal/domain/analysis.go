package domain

import "time"

// NormApplicabilityResult is the outcome of checking one norm against one
// product description. A failed check carries Error and Applies=false so
// uncertain norms are excluded rather than silently included.
type NormApplicabilityResult struct {
	NormID     string `json:"norm_id"`
	NormName   string `json:"norm_name"`
	Applies    bool   `json:"applies"`
	Confidence int    `json:"confidence"`
	Reasoning  string `json:"reasoning"`
	Error      string `json:"error,omitempty"`
}

// MatchThreshold is the minimum confidence for an applicable norm to appear
// in the matched result set.
const MatchThreshold = 50

// AnalysisRun is one complete pass of checking a product description against
// a set of norms. Re-analysis produces a new run; old runs are retained.
type AnalysisRun struct {
	RunID          string                             `json:"run_id"`
	ProductSummary string                             `json:"product_summary"`
	AllowedNormIDs []string                           `json:"allowed_norm_ids"`
	Results        map[string]NormApplicabilityResult `json:"results"`
	MatchedResults []NormApplicabilityResult          `json:"matched_results"`
	StartedAt      time.Time                          `json:"started_at"`
	CompletedAt    time.Time                          `json:"completed_at"`
}
